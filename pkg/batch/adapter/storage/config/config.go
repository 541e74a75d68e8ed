// Package config holds the settings of a storage connection.
package config

import "time"

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string        `yaml:"type"`             // local (default), gcs or ftp.
	BaseDir         string        `yaml:"base_dir"`         // Root directory for local operations.
	BucketName      string        `yaml:"bucket_name"`      // GCS bucket.
	CredentialsFile string        `yaml:"credentials_file"` // GCS service account key; empty uses application default credentials.
	Prefix          string        `yaml:"prefix"`           // Object name prefix for GCS, remote directory for FTP.
	Host            string        `yaml:"host"`             // FTP host:port.
	User            string        `yaml:"user"`             // FTP user.
	Password        string        `yaml:"password"`         // FTP password.
	Timeout         time.Duration `yaml:"timeout"`          // FTP dial timeout.
}
