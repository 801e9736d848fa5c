package quandl

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/couchcryptid/city-info-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRelay struct {
	urls []string
	body string
	err  error
}

func (f *fakeRelay) Fetch(_ context.Context, u string) ([]byte, error) {
	f.urls = append(f.urls, u)
	return []byte(f.body), f.err
}

func TestClient_Latest(t *testing.T) {
	relay := &fakeRelay{body: `{"datatable":{"data":[["ZSFH","1001","2020-01-31",1096500.0],["ZSFH","1001","2019-12-31",1090000.0]]}}`}
	c := NewClient(relay, "secret")

	v, err := c.Latest(context.Background(), "ZSFH", 1001)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.InDelta(t, 1096500, *v, 0)

	require.Len(t, relay.urls, 1)
	u, err := url.Parse(relay.urls[0])
	require.NoError(t, err)
	assert.Equal(t, "/api/v3/datatables/ZILLOW/DATA", u.Path)
	assert.Equal(t, "ZSFH", u.Query().Get("indicator_id"))
	assert.Equal(t, "1001", u.Query().Get("region_id"))
	assert.Equal(t, "secret", u.Query().Get("api_key"))
}

func TestClient_Latest_NoData(t *testing.T) {
	c := NewClient(&fakeRelay{body: `{"datatable":{"data":[]}}`}, "k")

	v, err := c.Latest(context.Background(), "SSSM", 2001)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestClient_Latest_RelayError(t *testing.T) {
	c := NewClient(&fakeRelay{err: errors.New("timeout")}, "k")

	_, err := c.Latest(context.Background(), "ZSFH", 1)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestClient_Latest_Malformed(t *testing.T) {
	c := NewClient(&fakeRelay{body: `{"datatable":{"data":[["ZSFH","1"]]}}`}, "k")

	_, err := c.Latest(context.Background(), "ZSFH", 1)
	assert.Error(t, err)
}
