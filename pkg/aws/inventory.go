package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/ec2"
)

// NewInstanceRecord builds a typed record. Exposed for callers that assemble
// records outside the query path, such as tests.
func NewInstanceRecord(id string, state InstanceState, address, iamRole, keyName string, tags map[string]string) InstanceRecord {
	return InstanceRecord{
		ID:      id,
		State:   state,
		Address: address,
		IamRole: iamRole,
		KeyName: keyName,
		tags:    tags,
	}
}

// Instances issues one bulk describe query for every instance carrying the
// node-role tag, in any cluster and any lifecycle state, and parses the raw
// reservations into typed records.
func (c *Client) Instances() ([]InstanceRecord, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []*ec2.Filter{
			{
				Name:   aws.String("tag-key"),
				Values: aws.StringSlice([]string{NodeRoleTag}),
			},
		},
	}

	var records []InstanceRecord
	var convErr error
	err := c.ec2.DescribeInstancesPages(input, func(page *ec2.DescribeInstancesOutput, _ bool) bool {
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				record, err := convertInstance(instance)
				if err != nil {
					convErr = err
					return false
				}
				records = append(records, record)
			}
		}
		return true
	})
	if err != nil {
		return nil, translateQueryError(err)
	}
	if convErr != nil {
		return nil, convErr
	}

	return records, nil
}

func convertInstance(instance *ec2.Instance) (InstanceRecord, error) {
	tags := make(map[string]string, len(instance.Tags))
	for _, tag := range instance.Tags {
		if tag.Key == nil || tag.Value == nil {
			continue
		}
		tags[*tag.Key] = *tag.Value
	}

	id := aws.StringValue(instance.InstanceId)
	if _, ok := tags[ClusterNameTag]; !ok {
		return InstanceRecord{}, fmt.Errorf(
			"%w: instance %s carries the %s tag but no %s tag",
			ErrMalformedInventory, id, NodeRoleTag, ClusterNameTag)
	}

	var state InstanceState
	if instance.State != nil {
		state = parseState(aws.StringValue(instance.State.Name))
	} else {
		state = StateUnknown
	}

	var iamRole string
	if instance.IamInstanceProfile != nil {
		iamRole = aws.StringValue(instance.IamInstanceProfile.Arn)
	}

	return InstanceRecord{
		ID:      id,
		State:   state,
		Address: aws.StringValue(instance.PublicIpAddress),
		IamRole: iamRole,
		KeyName: aws.StringValue(instance.KeyName),
		tags:    tags,
	}, nil
}

// translateQueryError collapses SDK failures into the package taxonomy.
func translateQueryError(err error) error {
	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		switch awsErr.Code() {
		case "ExpiredToken", "ExpiredTokenException", "RequestExpired":
			return fmt.Errorf("%w: %s", ErrCredentialsExpired, awsErr.Message())
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "token has expired") {
		return fmt.Errorf("%w: %v", ErrCredentialsExpired, err)
	}

	return fmt.Errorf("%w: %v", ErrInventoryQuery, err)
}
