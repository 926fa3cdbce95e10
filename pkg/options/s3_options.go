package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

var _ IOptions = (*S3Options)(nil)

// S3Options configures the object-storage mirror for firmware artifacts.
type S3Options struct {
	Enabled         bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"access-key-id" mapstructure:"access-key-id"`
	SecretAccessKey string `json:"secret-access-key" mapstructure:"secret-access-key"`
	UseSSL          bool   `json:"use-ssl" mapstructure:"use-ssl"`
	BucketName      string `json:"bucket-name" mapstructure:"bucket-name"`
	Prefix          string `json:"prefix" mapstructure:"prefix"`
	Region          string `json:"region" mapstructure:"region"`
}

func NewS3Options() *S3Options {
	return &S3Options{
		UseSSL:     true,
		BucketName: "firmware",
		Prefix:     "bin/",
		Region:     "us-east-1",
	}
}

func (o *S3Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.Endpoint == "" {
		errs = append(errs, fmt.Errorf("acquire.s3.endpoint is required when the mirror is enabled"))
	}
	if o.BucketName == "" {
		errs = append(errs, fmt.Errorf("acquire.s3.bucket-name is required when the mirror is enabled"))
	}
	return errs
}

func (o *S3Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.BoolVar(&o.Enabled, "acquire.s3.enabled", o.Enabled, "Download server binaries from an S3 mirror instead of HTTPS.")
	fs.StringVar(&o.Endpoint, "acquire.s3.endpoint", o.Endpoint, "S3 service endpoint (e.g. s3.amazonaws.com or minio.local:9000)")
	fs.StringVar(&o.AccessKeyID, "acquire.s3.access-key-id", o.AccessKeyID, "S3 access key ID")
	fs.StringVar(&o.SecretAccessKey, "acquire.s3.secret-access-key", o.SecretAccessKey, "S3 secret access key")
	fs.BoolVar(&o.UseSSL, "acquire.s3.use-ssl", o.UseSSL, "Enable SSL for S3 connection")
	fs.StringVar(&o.BucketName, "acquire.s3.bucket-name", o.BucketName, "S3 bucket holding the firmware binaries")
	fs.StringVar(&o.Prefix, "acquire.s3.prefix", o.Prefix, "Object key prefix of the firmware binaries")
	fs.StringVar(&o.Region, "acquire.s3.region", o.Region, "S3 region")
}
