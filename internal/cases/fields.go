package cases

import (
	"github.com/aws/aws-sdk-go-v2/service/connectcases/types"
	"github.com/jarrod-lowe/connect-email-bridge/internal/profile"
)

// ExtractDetails maps a typed case field list to Details. customer_id holds a
// profile ARN and is reduced to its trailing path segment. Fields other than
// string values are ignored.
func ExtractDetails(fields []types.FieldValue) Details {
	var d Details
	for _, f := range fields {
		if f.Id == nil {
			continue
		}
		v, ok := f.Value.(*types.FieldValueUnionMemberStringValue)
		if !ok {
			continue
		}
		switch *f.Id {
		case FieldTitle:
			d.Title = v.Value
		case FieldCustomerID:
			d.CustomerID = profile.IDFromARN(v.Value)
		}
	}
	return d
}
