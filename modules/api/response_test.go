package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestResponseHelpers(t *testing.T) {
	app := fiber.New()
	app.Get("/ok", func(c *fiber.Ctx) error { return success(c, "Done", fiber.Map{"id": "1"}) })
	app.Get("/empty", func(c *fiber.Ctx) error { return success(c, "Done", nil) })
	app.Get("/created", func(c *fiber.Ctx) error { return created(c, "Made", []string{}) })
	app.Get("/none", func(c *fiber.Ctx) error { return noContent(c) })

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/ok", 200, `{"success":true,"message":"Done","data":{"id":"1"}}`},
		{"/empty", 200, `{"success":true,"message":"Done"}`},
		{"/created", 201, `{"success":true,"message":"Made","data":[]}`},
		{"/none", 204, ``},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil), -1)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			raw, _ := io.ReadAll(resp.Body)
			if tt.body == "" {
				if len(raw) != 0 {
					t.Errorf("body = %s, want empty", raw)
				}
				return
			}
			var got, want any
			if err := json.Unmarshal(raw, &got); err != nil {
				t.Fatalf("invalid JSON %s: %v", raw, err)
			}
			_ = json.Unmarshal([]byte(tt.body), &want)
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("body = %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}
