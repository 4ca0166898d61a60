package datagov

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/carpark-etl/internal/domain"
	"github.com/couchcryptid/carpark-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedBody = `{
  "items": [{
    "timestamp": "2025-03-08T23:16:36+08:00",
    "carpark_data": [
      {"carpark_number": "A11", "update_datetime": "2025-03-08T23:16:32",
       "carpark_info": [{"total_lots": "410", "lot_type": "C", "lots_available": "236"}]},
      {"carpark_number": "TR1", "update_datetime": "2025-03-08T23:15:05",
       "carpark_info": [{"total_lots": "391", "lot_type": "C", "lots_available": "143"}]}
    ]
  }]
}`

func testClient(url string) *Client {
	return NewClient(url, 5*time.Second, observability.NewMetricsForTesting())
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	table, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, table.Records, 2)
	assert.Equal(t, "A11", table.Records[0].ID)
	assert.Equal(t, 410, table.Records[0].TotalLots)
	assert.Equal(t, 236, table.Records[0].LotsAvailable)
	assert.Equal(t, "TR1", table.Records[1].ID)
	assert.Equal(t, 143, table.Records[1].LotsAvailable)
	require.NotNil(t, table.FeedTimestamp)
	assert.Equal(t, "2025-03-08T23:16:36+08:00", *table.FeedTimestamp)
}

func TestClient_Fetch_ReportsDroppedEntries(t *testing.T) {
	body := `{"items":[{"timestamp":"t","carpark_data":[
	  {"carpark_number":"A11","update_datetime":"u","carpark_info":[{"total_lots":"10","lots_available":"4"}]},
	  {"carpark_number":"","update_datetime":"u","carpark_info":[{"total_lots":"10","lots_available":"4"}]},
	  {"carpark_number":"B2","update_datetime":"u","carpark_info":[]}]}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	table, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, 2, table.Dropped)
}

func TestClient_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, domain.ErrTransport},
		{"not found", http.StatusNotFound, ``, domain.ErrTransport},
		{"html body", http.StatusOK, `<html>maintenance</html>`, domain.ErrDecode},
		{"empty items", http.StatusOK, `{"items":[]}`, domain.ErrShape},
		{"only entry lacks info", http.StatusOK, `{"items":[{"carpark_data":[{"carpark_number":"A11","update_datetime":"u","carpark_info":[]}]}]}`, domain.ErrShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).Fetch(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_Fetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testClient(url).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_Fetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, 50*time.Millisecond, observability.NewMetricsForTesting())
	_, err := c.Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_Fetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).Fetch(ctx)
	require.ErrorIs(t, err, domain.ErrTransport)
}
