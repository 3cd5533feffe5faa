package influxdb

import (
	"context"
	"errors"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/domain"
)

// admin is the operator-level surface used by Provision. IDs are opaque
// server identifiers.
type admin interface {
	findOrg(ctx context.Context, name string) (id string, found bool, err error)
	createOrg(ctx context.Context, name string) (string, error)
	findUser(ctx context.Context, name string) (id string, found bool, err error)
	createUser(ctx context.Context, name, password string) (string, error)
	findBucket(ctx context.Context, orgID, name string) (id string, found bool, err error)
	createBucket(ctx context.Context, orgID, name string) (string, error)
	addOrgMember(ctx context.Context, orgID, userID string) error
	addBucketOwner(ctx context.Context, bucketID, userID string) error
	close()
}

var errMissingID = errors.New("server response has no id")

// influxAdmin implements admin against the InfluxDB 2.x HTTP API using the
// operator token.
type influxAdmin struct {
	client influxdb2.Client
}

func newInfluxAdmin(url, token string, timeoutSeconds uint) *influxAdmin {
	return &influxAdmin{
		client: influxdb2.NewClientWithOptions(url, token,
			influxdb2.DefaultOptions().SetHTTPRequestTimeout(timeoutSeconds)),
	}
}

func (a *influxAdmin) findOrg(ctx context.Context, name string) (string, bool, error) {
	res, err := a.client.APIClient().GetOrgs(ctx, &domain.GetOrgsParams{Org: &name})
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	if res.Orgs != nil {
		for _, o := range *res.Orgs {
			if o.Name == name && o.Id != nil {
				return *o.Id, true, nil
			}
		}
	}
	return "", false, nil
}

func (a *influxAdmin) createOrg(ctx context.Context, name string) (string, error) {
	org, err := a.client.OrganizationsAPI().CreateOrganizationWithName(ctx, name)
	if err != nil {
		return "", err
	}
	return derefID(org.Id)
}

func (a *influxAdmin) findUser(ctx context.Context, name string) (string, bool, error) {
	res, err := a.client.APIClient().GetUsers(ctx, &domain.GetUsersParams{Name: &name})
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	if res.Users != nil {
		for _, u := range *res.Users {
			if u.Name == name && u.Id != nil {
				return *u.Id, true, nil
			}
		}
	}
	return "", false, nil
}

func (a *influxAdmin) createUser(ctx context.Context, name, password string) (string, error) {
	users := a.client.UsersAPI()
	u, err := users.CreateUserWithName(ctx, name)
	if err != nil {
		return "", err
	}
	id, err := derefID(u.Id)
	if err != nil {
		return "", err
	}
	if err := users.UpdateUserPasswordWithID(ctx, id, password); err != nil {
		return "", err
	}
	return id, nil
}

func (a *influxAdmin) findBucket(ctx context.Context, orgID, name string) (string, bool, error) {
	res, err := a.client.APIClient().GetBuckets(ctx, &domain.GetBucketsParams{Name: &name, OrgID: &orgID})
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	if res.Buckets != nil {
		for _, b := range *res.Buckets {
			if b.Name == name && b.Id != nil {
				return *b.Id, true, nil
			}
		}
	}
	return "", false, nil
}

func (a *influxAdmin) createBucket(ctx context.Context, orgID, name string) (string, error) {
	b, err := a.client.BucketsAPI().CreateBucketWithNameWithID(ctx, orgID, name)
	if err != nil {
		return "", err
	}
	return derefID(b.Id)
}

func (a *influxAdmin) addOrgMember(ctx context.Context, orgID, userID string) error {
	_, err := a.client.OrganizationsAPI().AddMemberWithID(ctx, orgID, userID)
	return err
}

func (a *influxAdmin) addBucketOwner(ctx context.Context, bucketID, userID string) error {
	_, err := a.client.BucketsAPI().AddOwnerWithID(ctx, bucketID, userID)
	return err
}

func (a *influxAdmin) close() {
	a.client.Close()
}

// isNotFound matches the "not found" error code the server returns for
// lookups of missing resources.
func isNotFound(err error) bool {
	return strings.HasPrefix(err.Error(), string(domain.ErrorCodeNotFound)+":")
}

func derefID(id *string) (string, error) {
	if id == nil || *id == "" {
		return "", errMissingID
	}
	return *id, nil
}
