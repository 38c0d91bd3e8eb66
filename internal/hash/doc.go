// Package hash provides the CRC32-Castagnoli checksums used for snapshot
// integrity and S3 upload validation.
//
//	sum := hash.CRC32C(header)
//	sum = hash.UpdateCRC32C(sum, payload)
package hash
