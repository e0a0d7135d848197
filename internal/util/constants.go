package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimeCSV = "text/csv"
)

const (
	SweepLockKey = "classroom:lock:lifecycle-sweep"
	ExportPrefix = "exports"
)
