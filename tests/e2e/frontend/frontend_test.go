//go:build e2e

// Package frontend provides end-to-end browser tests for the collabfront UI.
// They expect a server started with app.mode=mock, e.g.
//
//	APP_MODE=mock go run ./cmd/api
package frontend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test configuration
const (
	defaultBaseURL  = "http://localhost:8080"
	defaultTimeout  = 15 * time.Second
	defaultHeadless = true
)

func baseURL() string {
	if u := os.Getenv("E2E_BASE_URL"); u != "" {
		return u
	}
	return defaultBaseURL
}

// isHeadless returns whether browser should run in headless mode.
// Set HEADLESS=false environment variable to run with visible browser.
func isHeadless() bool {
	if val := os.Getenv("HEADLESS"); val == "false" || val == "0" {
		return false
	}
	return defaultHeadless
}

// TestSuite holds the Playwright context for frontend tests.
type TestSuite struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

// setupTestSuite initializes Playwright and browser.
func setupTestSuite(t *testing.T) *TestSuite {
	t.Helper()

	pw, err := playwright.Run()
	require.NoError(t, err, "Failed to start Playwright")

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(isHeadless()),
	})
	require.NoError(t, err, "Failed to launch browser")

	s := &TestSuite{pw: pw, browser: browser}
	t.Cleanup(s.teardown)
	return s
}

func (s *TestSuite) teardown() {
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.pw != nil {
		_ = s.pw.Stop()
	}
}

// openLivePage loads path and waits until the notification socket is connected.
func (s *TestSuite) openLivePage(t *testing.T, path string) playwright.Page {
	t.Helper()

	page, err := s.browser.NewPage()
	require.NoError(t, err, "Failed to create new page")
	t.Cleanup(func() { _ = page.Close() })

	page.SetDefaultTimeout(float64(defaultTimeout.Milliseconds()))

	_, err = page.Goto(baseURL() + path)
	require.NoError(t, err)

	_, err = page.WaitForSelector("html[data-live=true]", playwright.PageWaitForSelectorOptions{
		State: playwright.WaitForSelectorStateAttached,
	})
	require.NoError(t, err, "notification socket did not connect")

	return page
}

// postNotification calls the server API directly and returns the notification id.
func postNotification(t *testing.T, body map[string]any) int {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(baseURL()+"/api/v1/notifications", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var env struct {
		Data struct {
			ID int `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env.Data.ID
}

func deleteNotification(t *testing.T, id int) {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/v1/notifications/%d", baseURL(), id), nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func waitVisible(t *testing.T, loc playwright.Locator) {
	t.Helper()
	require.NoError(t, loc.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	}))
}

func waitDetached(t *testing.T, loc playwright.Locator) {
	t.Helper()
	require.NoError(t, loc.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateDetached,
	}))
}

func TestFrontend_HomePage_Renders(t *testing.T) {
	suite := setupTestSuite(t)
	page := suite.openLivePage(t, "/")

	heading, err := page.Locator("h1").TextContent()
	require.NoError(t, err)
	assert.Equal(t, "Domains", heading)

	visible, err := page.Locator("#create-domain").IsVisible()
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestFrontend_ServerPushedToast(t *testing.T) {
	suite := setupTestSuite(t)
	page := suite.openLivePage(t, "/")

	id := postNotification(t, map[string]any{
		"type":     "success",
		"title":    "Pushed from server",
		"message":  "over the socket",
		"duration": 0,
	})

	toast := page.Locator(fmt.Sprintf(".toast[data-id='%d']", id))
	waitVisible(t, toast)

	class, err := toast.GetAttribute("class")
	require.NoError(t, err)
	assert.Contains(t, class, "toast-success")

	text, err := toast.TextContent()
	require.NoError(t, err)
	assert.Contains(t, text, "Pushed from server")
	assert.Contains(t, text, "over the socket")

	deleteNotification(t, id)
	waitDetached(t, toast)
}

func TestFrontend_ToastExpires(t *testing.T) {
	suite := setupTestSuite(t)
	page := suite.openLivePage(t, "/")

	id := postNotification(t, map[string]any{
		"type":     "warning",
		"title":    "Short lived",
		"duration": 500,
	})

	toast := page.Locator(fmt.Sprintf(".toast[data-id='%d']", id))
	waitVisible(t, toast)
	waitDetached(t, toast)
}

func TestFrontend_LocalToastDismiss(t *testing.T) {
	suite := setupTestSuite(t)
	page := suite.openLivePage(t, "/")

	_, err := page.Evaluate(`() => window.showNotification({type: "error", title: "Local", duration: 0})`)
	require.NoError(t, err)

	toast := page.Locator(".toast-error:has-text('Local')")
	waitVisible(t, toast)

	role, err := toast.GetAttribute("role")
	require.NoError(t, err)
	assert.Equal(t, "alert", role)

	require.NoError(t, toast.Locator(".toast-close").Click())
	waitDetached(t, toast)
}

func TestFrontend_CreateAndRemoveDomain(t *testing.T) {
	suite := setupTestSuite(t)
	page := suite.openLivePage(t, "/")

	name := fmt.Sprintf("e2e-%d", time.Now().UnixNano())

	require.NoError(t, page.Locator("#create-domain input[name=name]").Fill(name))
	require.NoError(t, page.Locator("#create-domain button[type=submit]").Click())

	row := page.Locator(fmt.Sprintf("table.list tr:has-text('%s')", name))
	waitVisible(t, row)

	require.NoError(t, row.Locator("button[data-delete]").Click())
	waitDetached(t, row)
}
