package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/soltixdb/soltix-transform/internal/config"
	"github.com/soltixdb/soltix-transform/internal/datastore"
	"github.com/soltixdb/soltix-transform/internal/models"
	"github.com/soltixdb/soltix-transform/internal/series"
	"github.com/soltixdb/soltix-transform/internal/services"
	"github.com/soltixdb/soltix-transform/internal/transform"
)

func f(v float64) *float64 { return &v }

// setupTestServer serves a memory-backed service over an in-process listener.
func setupTestServer(t *testing.T) (*Client, *services.TransformService) {
	t.Helper()

	svc := services.NewTransformService(nil, config.DefaultConfig().Engine, datastore.NewMemoryStore(0), nil)
	srv := NewServer("bufnet", svc, nil)

	lis := bufconn.Listen(1024 * 1024)
	go func() { _ = srv.Serve(lis) }()

	client, err := Dial("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		srv.Stop()
		_ = svc.Close()
	})
	return client, svc
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestFunctions(t *testing.T) {
	client, _ := setupTestServer(t)

	names, err := client.Functions(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, transform.Names(), names)
}

func TestEvaluate(t *testing.T) {
	client, _ := setupTestServer(t)

	resp, err := client.Evaluate(testContext(t), &models.EvaluateRequest{
		Function: "SUM",
		Series: []models.SeriesPayload{
			{Scope: "app", Metric: "a", Datapoints: map[int64]*float64{1700000000000: f(1), 1700000060000: nil}},
			{Scope: "app", Metric: "b", Datapoints: map[int64]*float64{1700000000000: f(2), 1700000060000: f(5)}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "SUM", resp.Function)
	assert.Equal(t, int64(1700000000000), resp.Start)
	assert.Equal(t, int64(1700000060000), resp.End)
	require.Len(t, resp.Series, 1)
	assert.Equal(t, 3.0, *resp.Series[0].Datapoints[1700000000000])
	assert.Equal(t, 5.0, *resp.Series[0].Datapoints[1700000060000])
}

func TestEvaluateQuery(t *testing.T) {
	client, svc := setupTestServer(t)
	ctx := testContext(t)

	_, err := svc.Write(ctx, []*series.Series{
		series.New("host", "cpu", series.Datapoints{1000: 10, 2000: 20, 3000: 30}),
	})
	require.NoError(t, err)

	resp, err := client.EvaluateQuery(ctx, &models.QueryEvaluateRequest{
		Function: "SCALE",
		Args:     []string{"2"},
		Queries:  []datastore.Query{{Scope: "host", Name: "cpu"}},
		Start:    2000,
		End:      3000,
	})
	require.NoError(t, err)
	require.Len(t, resp.Series, 1)
	assert.Equal(t, map[int64]*float64{2000: f(40), 3000: f(60)}, resp.Series[0].Datapoints)
}

func TestEvaluateErrors(t *testing.T) {
	client, _ := setupTestServer(t)
	in := []models.SeriesPayload{{Scope: "app", Metric: "a", Datapoints: map[int64]*float64{1: f(1)}}}

	tests := []struct {
		name string
		req  *models.EvaluateRequest
		code codes.Code
	}{
		{"missing function", &models.EvaluateRequest{Series: in}, codes.InvalidArgument},
		{"unknown function", &models.EvaluateRequest{Function: "NOPE", Series: in}, codes.NotFound},
		{"bad argument", &models.EvaluateRequest{Function: "MOVING", Args: []string{"x"}, Series: in}, codes.InvalidArgument},
		{"too few series", &models.EvaluateRequest{Function: "DIFF", Series: in}, codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Evaluate(testContext(t), tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.Unavailable, status.Code(toStatus(services.NewServiceError(services.CodeFetchFailed, "down"))))
	assert.Equal(t, codes.Internal, status.Code(toStatus(services.NewServiceError(services.CodeEvaluationFailed, "x"))))
	assert.Equal(t, codes.Internal, status.Code(toStatus(assert.AnError)))
}
