package influxdb

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// session is an authenticated connection used for pings and writes.
type session interface {
	ping(ctx context.Context) (bool, error)
	write(ctx context.Context, p *write.Point) error
	close(ctx context.Context)
}

// influxSession is signed in with the logger's own principal rather than
// an API token.
type influxSession struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func openInfluxSession(ctx context.Context, url, org, bucket, username, password string, timeoutSeconds uint) (*influxSession, error) {
	client := influxdb2.NewClientWithOptions(url, "",
		influxdb2.DefaultOptions().SetHTTPRequestTimeout(timeoutSeconds))

	if err := client.UsersAPI().SignIn(ctx, username, password); err != nil {
		client.Close()
		return nil, err
	}

	return &influxSession{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
	}, nil
}

func (s *influxSession) ping(ctx context.Context) (bool, error) {
	return s.client.Ping(ctx)
}

func (s *influxSession) write(ctx context.Context, p *write.Point) error {
	return s.writeAPI.WritePoint(ctx, p)
}

func (s *influxSession) close(ctx context.Context) {
	_ = s.client.UsersAPI().SignOut(ctx) //nolint:errcheck // best effort, the client is discarded anyway
	s.client.Close()
}
