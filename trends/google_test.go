package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chart-collector/models"
	"chart-collector/utils"
)

func googleStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/trends/api/explore", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ComparisonItem []comparisonItem `json:"comparisonItem"`
			Category       int              `json:"category"`
		}
		if err := json.Unmarshal([]byte(r.URL.Query().Get("req")), &req); err != nil || len(req.ComparisonItem) == 0 {
			http.Error(w, "bad req", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `)]}'
{"widgets":[
 {"id":"TIMESERIES","token":"ts-token","request":{"time":"2024-01-01 2024-01-31"}},
 {"id":"RELATED_TOPICS","token":"rt-token","request":{"keyword":"x"}},
 {"id":"RELATED_QUERIES","token":"rq-token","request":{"keyword":"x"}}]}`)
	})
	mux.HandleFunc("/trends/api/widgetdata/multiline", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "ts-token" {
			http.Error(w, "token", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `)]}',
{"default":{"timelineData":[
 {"time":"1704067200","value":[45,30]},
 {"time":"1704672000","value":[100,12]}]}}`)
	})
	mux.HandleFunc("/trends/api/widgetdata/relatedsearches", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("token") {
		case "rq-token":
			fmt.Fprint(w, `)]}',
{"default":{"rankedList":[
 {"rankedKeyword":[{"query":"x lyrics","value":100,"formattedValue":"100","link":"/l"}]},
 {"rankedKeyword":[{"query":"x tour","value":3250,"formattedValue":"+3,250%"}]}]}}`)
		case "rt-token":
			fmt.Fprint(w, `)]}',
{"default":{"rankedList":[
 {"rankedKeyword":[{"topic":{"mid":"/m/0abc","title":"Singer","type":"Topic"},"value":100}]},
 {"rankedKeyword":[]}]}}`)
		default:
			http.Error(w, "token", http.StatusUnauthorized)
		}
	})
	return httptest.NewServer(mux)
}

func TestGoogleInterestOverTime(t *testing.T) {
	srv := googleStub(t)
	defer srv.Close()

	g := NewGoogleClient(srv.URL, "en-US", utils.NewHTTPClient(5*time.Second, ""), 0, utils.NewNopLogger())
	series, err := g.InterestOverTime(context.Background(), Query{Terms: []string{"a", "b"}, Timeframe: "2024-01-01 2024-01-31", Geo: "US"})
	if err != nil {
		t.Fatalf("InterestOverTime: %v", err)
	}
	if len(series["a"]) != 2 || series["a"][0] != (models.Point{Date: "2024-01-01", Value: 45}) {
		t.Errorf("series a = %v", series["a"])
	}
	if series["b"][1] != (models.Point{Date: "2024-01-08", Value: 12}) {
		t.Errorf("series b = %v", series["b"])
	}
}

func TestGoogleRelated(t *testing.T) {
	srv := googleStub(t)
	defer srv.Close()

	g := NewGoogleClient(srv.URL, "en-US", utils.NewHTTPClient(5*time.Second, ""), 0, utils.NewNopLogger())
	q := Query{Terms: []string{"x"}, Timeframe: "today 12-m", Geo: "US"}

	top, rising, err := g.Related(context.Background(), q, "queries")
	if err != nil {
		t.Fatalf("Related queries: %v", err)
	}
	if len(top) != 1 || top[0].Query != "x lyrics" || len(rising) != 1 || rising[0].Value != 3250 {
		t.Errorf("queries top=%v rising=%v", top, rising)
	}

	top, rising, err = g.Related(context.Background(), q, "topics")
	if err != nil {
		t.Fatalf("Related topics: %v", err)
	}
	if len(top) != 1 || top[0].TopicMID != "/m/0abc" || len(rising) != 0 {
		t.Errorf("topics top=%v rising=%v", top, rising)
	}
}
