// Package mem allocates heap buffers on a chosen alignment boundary.
package mem
