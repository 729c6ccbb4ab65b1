package display_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/statwatch/internal/adapters/display"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDisplayAPI is a tiny in-memory display server.
type fakeDisplayAPI struct {
	mu         sync.Mutex
	categories map[string]string // id -> name
	resources  map[string]string // id -> label
	nextID     int
}

func newFakeDisplayAPI() *fakeDisplayAPI {
	return &fakeDisplayAPI{
		categories: make(map[string]string),
		resources:  make(map[string]string),
	}
}

func (f *fakeDisplayAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/categories", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			name := r.URL.Query().Get("name")
			out := []map[string]string{}
			for id, n := range f.categories {
				if n == name {
					out = append(out, map[string]string{"id": id, "name": n})
				}
			}
			_ = json.NewEncoder(w).Encode(out)
		case http.MethodPost:
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			f.nextID++
			id := fmt.Sprintf("cat-%d", f.nextID)
			f.categories[id] = in["name"]
			_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "name": in["name"]})
		}
	})
	mux.HandleFunc("/resources", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.nextID++
		id := fmt.Sprintf("res-%d", f.nextID)
		f.resources[id] = in["label"]
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "label": in["label"]})
	})
	mux.HandleFunc("/resources/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := strings.TrimPrefix(r.URL.Path, "/resources/")
		if _, ok := f.resources[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodPatch:
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			f.resources[id] = in["label"]
		case http.MethodDelete:
			delete(f.resources, id)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestClient(t *testing.T) {
	Convey("Given a display API", t, func() {
		api := newFakeDisplayAPI()
		srv := httptest.NewServer(api.handler())
		defer srv.Close()
		client := display.NewClient(srv.URL)
		ctx := context.Background()

		Convey("When ensuring a category twice", func() {
			first, err1 := client.EnsureCategory(ctx, "tracker stats")
			second, err2 := client.EnsureCategory(ctx, "tracker stats")

			Convey("Then the same category is reused", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldNotBeEmpty)
				So(second, ShouldEqual, first)
				So(len(api.categories), ShouldEqual, 1)
			})
		})

		Convey("When creating and relabeling a resource", func() {
			cat, _ := client.EnsureCategory(ctx, "tracker stats")
			id, err := client.CreateResource(ctx, cat, "kd: 3.00")
			So(err, ShouldBeNil)

			Convey("Then relabel updates it in place", func() {
				So(client.RelabelResource(ctx, id, "kd: 3.10"), ShouldBeNil)
				So(api.resources[id], ShouldEqual, "kd: 3.10")
			})

			Convey("And relabeling a vanished resource reports not found", func() {
				So(client.DeleteResource(ctx, id), ShouldBeNil)
				err := client.RelabelResource(ctx, id, "kd: 3.20")
				So(errors.Is(err, display.ErrNotFound), ShouldBeTrue)
			})

			Convey("And deleting a vanished resource is a no-op", func() {
				So(client.DeleteResource(ctx, id), ShouldBeNil)
				So(client.DeleteResource(ctx, id), ShouldBeNil)
			})
		})
	})
}
