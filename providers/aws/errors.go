package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// IsNotFound reports whether err means the target resource does not
// exist. Lookup paths convert these into a found=false result; removal
// paths treat them as already done. S3 head operations report the bare
// "NotFound" code, and SQS kept its legacy namespaced code through the
// protocol migration, so both spellings are matched.
func IsNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ResourceNotFoundException",
		"NotFoundException",
		"NoSuchEntity",
		"NoSuchBucket",
		"NoSuchKey",
		"NotFound",
		"404",
		"QueueDoesNotExist",
		"AWS.SimpleQueueService.NonExistentQueue":
		return true
	}
	return false
}
