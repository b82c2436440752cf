package orderfeed_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"creatorsync/internal/orderfeed"
	"creatorsync/internal/services"
)

func TestSearchOrdersPostsTokenAndParsesPage(t *testing.T) {
	var got orderfeed.PageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders/search" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"code":0,"data":{"next_page_token":"abc","orders":[
			{"user_id":"u1","is_sample_order":true,"recipient_address":{
				"name":"Jane Doe","phone_number":"(+1)8085551234","postal_code":"96813",
				"district_info":[{"address_level_name":"State","address_name":"Hawaii"},{"address_level_name":"City","address_name":"Honolulu"}]}}
		]}}`))
	}))
	defer server.Close()

	client, err := orderfeed.New(orderfeed.Config{BaseURL: server.URL, AccessToken: "tok"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	page, err := client.SearchOrders(context.Background(), orderfeed.PageRequest{PageSize: 50, PageToken: "prev"})
	if err != nil {
		t.Fatalf("SearchOrders returned error: %v", err)
	}
	if got.PageSize != 50 || got.PageToken != "prev" {
		t.Fatalf("unexpected request body %+v", got)
	}
	if page.NextPageToken != "abc" || len(page.Orders) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	addr := page.Orders[0].RecipientAddress
	if addr.District("city") != "Honolulu" || addr.District("STATE") != "Hawaii" {
		t.Fatalf("unexpected districts %+v", addr.DistrictInfo)
	}
}

func TestSearchOrdersErrors(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusServiceUnavailable, ``, services.ErrTransient},
		{http.StatusForbidden, ``, services.ErrConfiguration},
		{http.StatusBadRequest, `bad`, services.ErrValidation},
		{http.StatusOK, `{"code":1001,"message":"invalid token"}`, services.ErrValidation},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(tt.body))
		}))
		client, err := orderfeed.New(orderfeed.Config{BaseURL: server.URL, AccessToken: "tok"})
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		_, err = client.SearchOrders(context.Background(), orderfeed.PageRequest{PageSize: 1})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
		server.Close()
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := orderfeed.New(orderfeed.Config{BaseURL: "https://example.com"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
