package aws

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"

	"github.com/Eventual-Inc/daft-launcher/shared"
)

// Client issues bulk inventory queries against one region. It holds no cache:
// every call is a fresh round trip, and staleness is bounded only by the
// query's own round-trip time.
type Client struct {
	region string
	ec2    ec2iface
}

// ec2iface is the slice of the EC2 API the client uses.
type ec2iface interface {
	DescribeInstancesPages(*ec2.DescribeInstancesInput, func(*ec2.DescribeInstancesOutput, bool) bool) error
}

// AddClient creates an inventory client for the given region.
func AddClient(region string) (*Client, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, shared.ReturnLogError("error creating AWS session: %v", err)
	}

	return &Client{
		region: region,
		ec2:    ec2.New(sess),
	}, nil
}

// Region returns the region the client queries.
func (c *Client) Region() string {
	return c.region
}
