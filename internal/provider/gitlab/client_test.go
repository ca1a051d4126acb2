package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"hooksync/internal/platform/models"
	"hooksync/internal/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	gl, err := gitlab.NewClient("test-token",
		gitlab.WithBaseURL(srv.URL+"/api/v4"),
		gitlab.WithoutRetries())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return &Client{gl: gl}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestClient_ResourceExists(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/projects/42":
			writeJSON(w, http.StatusOK, `{"id":42,"path_with_namespace":"acme/app"}`)
		case "/api/v4/projects/404":
			writeJSON(w, http.StatusNotFound, `{"message":"404 Project Not Found"}`)
		case "/api/v4/groups/7":
			writeJSON(w, http.StatusOK, `{"id":7,"full_path":"acme"}`)
		default:
			writeJSON(w, http.StatusNotFound, `{"message":"404 Not Found"}`)
		}
	})

	ctx := context.Background()

	exists, err := c.ResourceExists(ctx, models.ProjectResource(42))
	if err != nil || !exists {
		t.Errorf("project 42: expected exists, got %v %v", exists, err)
	}
	exists, err = c.ResourceExists(ctx, models.GroupResource(7))
	if err != nil || !exists {
		t.Errorf("group 7: expected exists, got %v %v", exists, err)
	}
	exists, err = c.ResourceExists(ctx, models.ProjectResource(404))
	if err != nil || exists {
		t.Errorf("project 404: expected gone without error, got %v %v", exists, err)
	}
}

func TestClient_ResourceExistsRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusTooManyRequests, `{"message":"429 Too Many Requests"}`)
	})

	_, err := c.ResourceExists(context.Background(), models.ProjectResource(42))
	if !errors.Is(err, provider.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestClient_HasAdminAccessProject(t *testing.T) {
	cases := []struct {
		name        string
		permissions string
		want        bool
	}{
		{"maintainer via project", `{"project_access":{"access_level":40}}`, true},
		{"owner via group", `{"project_access":null,"group_access":{"access_level":50}}`, true},
		{"developer only", `{"project_access":{"access_level":30}}`, false},
		{"no access", `{"project_access":null,"group_access":null}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{"id":42,"permissions":`+tc.permissions+`}`)
			})
			admin, err := c.HasAdminAccess(context.Background(), models.ProjectResource(42))
			if err != nil {
				t.Fatalf("access check: %v", err)
			}
			if admin != tc.want {
				t.Errorf("expected admin=%v", tc.want)
			}
		})
	}
}

func TestClient_HasAdminAccessGroup(t *testing.T) {
	cases := []struct {
		name        string
		accessLevel int
		want        bool
	}{
		{"owner", 50, true},
		{"maintainer is not enough on groups", 40, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/api/v4/user":
					writeJSON(w, http.StatusOK, `{"id":5,"username":"bot"}`)
				case "/api/v4/groups/7/members/5":
					writeJSON(w, http.StatusOK, fmt.Sprintf(`{"id":5,"access_level":%d}`, tc.accessLevel))
				default:
					writeJSON(w, http.StatusNotFound, `{"message":"404 Not Found"}`)
				}
			})
			admin, err := c.HasAdminAccess(context.Background(), models.GroupResource(7))
			if err != nil {
				t.Fatalf("access check: %v", err)
			}
			if admin != tc.want {
				t.Errorf("expected admin=%v", tc.want)
			}
		})
	}
}

func TestClient_HasAdminAccessGroupNotMember(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/user":
			writeJSON(w, http.StatusOK, `{"id":5,"username":"bot"}`)
		default:
			writeJSON(w, http.StatusNotFound, `{"message":"404 Not Found"}`)
		}
	})

	admin, err := c.HasAdminAccess(context.Background(), models.GroupResource(7))
	if err != nil {
		t.Fatalf("access check: %v", err)
	}
	if admin {
		t.Error("a non-member must not have admin access")
	}
}

func TestClient_WebhookExistsAtURL(t *testing.T) {
	var perPage string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/projects/42/hooks" {
			writeJSON(w, http.StatusNotFound, `{"message":"404 Not Found"}`)
			return
		}
		perPage = r.URL.Query().Get("per_page")
		writeJSON(w, http.StatusOK, `[
			{"id":1,"url":"https://other.example.com/hook"},
			{"id":2,"url":"https://hooks.example.com/api/v1/events/gitlab"}
		]`)
	})

	ctx := context.Background()
	res := models.ProjectResource(42)

	present, err := c.WebhookExistsAtURL(ctx, res, "https://hooks.example.com/api/v1/events/gitlab")
	if err != nil || !present {
		t.Errorf("expected hook present, got %v %v", present, err)
	}
	if perPage != "100" {
		t.Errorf("expected a full page of hooks to be requested, got per_page=%q", perPage)
	}
	present, err = c.WebhookExistsAtURL(ctx, res, "https://hooks.example.com/somewhere-else")
	if err != nil || present {
		t.Errorf("expected hook absent, got %v %v", present, err)
	}
}

func TestClient_WebhookExistsAtURLGroup(t *testing.T) {
	var perPage string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/groups/7/hooks" {
			writeJSON(w, http.StatusNotFound, `{"message":"404 Not Found"}`)
			return
		}
		perPage = r.URL.Query().Get("per_page")
		writeJSON(w, http.StatusOK, `[
			{"id":3,"url":"https://hooks.example.com/api/v1/events/gitlab"}
		]`)
	})

	present, err := c.WebhookExistsAtURL(context.Background(), models.GroupResource(7),
		"https://hooks.example.com/api/v1/events/gitlab")
	if err != nil || !present {
		t.Errorf("expected hook present, got %v %v", present, err)
	}
	if perPage != "100" {
		t.Errorf("expected a full page of hooks to be requested, got per_page=%q", perPage)
	}
}

func TestClient_CreateWebhook(t *testing.T) {
	var captured map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v4/projects/42/hooks" {
			writeJSON(w, http.StatusNotFound, `{"message":"404 Not Found"}`)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			writeJSON(w, http.StatusBadRequest, `{"message":"bad payload"}`)
			return
		}
		writeJSON(w, http.StatusCreated, `{"id":99,"url":"https://hooks.example.com/api/v1/events/gitlab"}`)
	})

	id, err := c.CreateWebhook(context.Background(), models.ProjectResource(42), provider.CreateWebhookParams{
		Name:          "hooksync",
		URL:           "https://hooks.example.com/api/v1/events/gitlab",
		Secret:        "s3cret",
		CorrelationID: "uuid-1",
		Scopes:        []string{"note_events", "pipeline_events"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 99 {
		t.Errorf("expected remote id 99, got %d", id)
	}

	if captured["token"] != "s3cret" {
		t.Errorf("expected secret as hook token, got %v", captured["token"])
	}
	if captured["description"] != "correlation=uuid-1" {
		t.Errorf("expected correlation id in description, got %v", captured["description"])
	}
	if captured["note_events"] != true || captured["pipeline_events"] != true {
		t.Errorf("requested scopes not enabled: %v", captured)
	}
	if enabled, ok := captured["issues_events"]; ok && enabled == true {
		t.Errorf("unrequested scope enabled: %v", captured)
	}
}

func TestClient_CreateWebhookRateLimited(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, `{"message":"429 Too Many Requests"}`)
	})

	_, err := c.CreateWebhook(context.Background(), models.GroupResource(7), provider.CreateWebhookParams{
		Name: "hooksync",
		URL:  "https://hooks.example.com/api/v1/events/gitlab",
	})
	if !errors.Is(err, provider.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}
