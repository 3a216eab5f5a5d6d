package aws

import "errors"

// Inventory transport failures are translated into this closed taxonomy at
// the SDK boundary; raw SDK errors never escape the package.
var (
	// ErrCredentialsExpired signals that the AWS credentials need a refresh
	// (`aws sso login` or equivalent) before any query can succeed.
	ErrCredentialsExpired = errors.New("aws credentials have expired")

	// ErrInventoryQuery covers every other transport failure of the bulk
	// describe call.
	ErrInventoryQuery = errors.New("inventory query failed")

	// ErrMalformedInventory is returned when a record carries the node-role
	// tag but is missing the data needed to interpret it.
	ErrMalformedInventory = errors.New("malformed inventory response")
)
