package ec2utils

import (
	"errors"
	"slices"
	"strings"

	"github.com/aws/smithy-go"
)

var notFoundCodes = []string{
	"InvalidVpcID.NotFound",
	"InvalidSubnetID.NotFound",
	"InvalidRouteTableID.NotFound",
	"InvalidInternetGatewayID.NotFound",
	"InvalidAllocationID.NotFound",
	"InvalidAssociationID.NotFound",
	"NatGatewayNotFound",
	"InvalidRoute.NotFound",
	"Gateway.NotAttached",
}

// IsNotFoundErr reports whether err is an EC2 error for a resource that no longer exists
func IsNotFoundErr(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	return slices.Contains(notFoundCodes, ae.ErrorCode()) || strings.HasSuffix(ae.ErrorCode(), ".NotFound")
}

func IsAlreadyExistsErr(err error) bool {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.ErrorCode() == "RouteAlreadyExists"
}

// IsAlreadyAssociatedErr is returned when a subnet is already associated with another route table
func IsAlreadyAssociatedErr(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "Resource.AlreadyAssociated"
}

// IsDependencyViolationErr is returned while resources still reference the one being deleted
func IsDependencyViolationErr(err error) bool {
	var ae smithy.APIError
	return errors.As(err, &ae) && ae.ErrorCode() == "DependencyViolation"
}
