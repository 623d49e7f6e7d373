package feedbin

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastTestConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		TimeoutSeconds: 5,
		MaxRetries:     3,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(fastTestConfig(server.URL), "user@example.com", "secret", zap.NewNop())
	// Shrink backoff so exhaustion tests run instantly.
	client.retryCfg.InitialDelay = 1
	client.retryCfg.MaxDelay = 1
	return client, server
}

func TestClientAuthorizationHeader(t *testing.T) {
	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("user@example.com:secret"))

	var got string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		fmt.Fprint(w, "[]")
	}))

	_, err := client.Subscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestSubscriptions(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/subscriptions.json", r.URL.Path)
		fmt.Fprint(w, `[
			{"id": 1, "created_at": "2024-01-01T00:00:00.000000Z", "feed_id": 10, "title": "Example", "feed_url": "http://example.com/feed", "site_url": "http://example.com"}
		]`)
	}))

	subs, err := client.Subscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.EqualValues(t, 10, subs[0].FeedID)
	assert.Equal(t, "Example", subs[0].Title)
	assert.Equal(t, "http://example.com/feed", subs[0].FeedURL)
}

func TestTaggings(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/taggings.json", r.URL.Path)
		fmt.Fprint(w, `[{"id": 5, "feed_id": 10, "name": "Tech"}]`)
	}))

	taggings, err := client.Taggings(context.Background())
	require.NoError(t, err)
	require.Len(t, taggings, 1)
	assert.Equal(t, "Tech", taggings[0].Name)
	assert.EqualValues(t, 10, taggings[0].FeedID)
}

func TestIcons(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/icons.json", r.URL.Path)
		fmt.Fprint(w, `[{"host": "example.com", "url": "http://example.com/favicon.ico"}]`)
	}))

	icons, err := client.Icons(context.Background())
	require.NoError(t, err)
	require.Len(t, icons, 1)
	assert.Equal(t, "example.com", icons[0].Host)
}

func TestEntryIDLists(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/unread_entries.json":
			fmt.Fprint(w, `[1, 2, 3]`)
		case "/v2/starred_entries.json":
			fmt.Fprint(w, `[2]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	unread, err := client.UnreadEntryIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, unread)

	starred, err := client.StarredEntryIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, starred)
}

func TestEntriesQueryParameters(t *testing.T) {
	var query map[string]string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{
			"since":    r.URL.Query().Get("since"),
			"page":     r.URL.Query().Get("page"),
			"mode":     r.URL.Query().Get("mode"),
			"per_page": r.URL.Query().Get("per_page"),
		}
		fmt.Fprint(w, `[]`)
	}))

	_, err := client.Entries(context.Background(), EntriesQuery{Since: "2024-01-01T00:00:00Z", Page: "2"})
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01T00:00:00Z", query["since"])
	assert.Equal(t, "2", query["page"])
	assert.Equal(t, "extended", query["mode"])
	assert.Equal(t, "100", query["per_page"])
}

func TestEntriesDecoding(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{
			"id": 100,
			"feed_id": 10,
			"title": "Hello",
			"url": "http://example.com/post",
			"author": "jane",
			"content": "<p>body</p>",
			"summary": "body",
			"published": "2024-03-01T10:00:00.000000Z",
			"created_at": "2024-03-01T10:05:00.000000Z",
			"images": {"original_url": "http://example.com/img.png", "size_1": {"cdn_url": "http://cdn/img.png"}},
			"enclosure": {"enclosure_url": "http://example.com/pod.mp3", "enclosure_type": "audio/mpeg"}
		}]`)
	}))

	entries, err := client.Entries(context.Background(), EntriesQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.EqualValues(t, 100, e.ID)
	assert.Equal(t, "Hello", *e.Title)
	require.NotNil(t, e.Images)
	assert.Equal(t, "http://example.com/img.png", e.Images.OriginalURL)
	require.NotNil(t, e.Enclosure)
	assert.Equal(t, "audio/mpeg", *e.Enclosure.EnclosureType)
}

func TestUnauthorizedShortCircuit(t *testing.T) {
	// A 401 must surface as ErrUnauthorized after a single request,
	// without consuming the remaining retry attempts.
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.Subscriptions(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestServerErrorRetriesAndSurfacesStatus(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	}))

	_, err := client.Subscriptions(context.Background())
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Equal(t, "upstream down", statusErr.Body)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls), "5xx must exhaust the attempt budget")
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Subscriptions(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "4xx other than 429 must not be retried")
}

func TestMalformedBodyNotRetried(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, "{not json")
	}))

	_, err := client.Subscriptions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTransientFailureRecovers(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"id": 5, "feed_id": 10, "name": "Tech"}]`)
	}))

	taggings, err := client.Taggings(context.Background())
	require.NoError(t, err)
	assert.Len(t, taggings, 1)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestValidCredentials(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/authentication.json", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))

		ok, err := client.ValidCredentials(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Invalid", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		ok, err := client.ValidCredentials(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("TransportError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		client := NewClient(fastTestConfig(server.URL), "user", "pw", zap.NewNop())
		server.Close()

		_, err := client.ValidCredentials(context.Background())
		assert.Error(t, err)
	})
}
