// Package routertest provides a router.Context double for handler and
// middleware tests.
//
// Request data is read from plain fields. Responses that end a request
// (JSON, Render, Redirect, Send) go through testify's mock so tests
// declare what they expect with On, the JSON payload is also kept in
// Payload for inspection.
package routertest

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

var _ router.Context = (*MockContext)(nil)

type MockContext struct {
	mock.Mock

	MethodValue    string
	PathValue      string
	URL            string
	RequestBody    []byte
	Params         map[string]string
	QueryValues    map[string]string
	Headers        map[string]string
	RequestCookies map[string]string

	LocalsMock      map[any]any
	Store           map[string]any
	ResponseHeaders map[string]string
	SetCookies      []*router.Cookie

	StatusCode int
	Payload    any
	NextCalls  int

	ctx context.Context
}

func NewMockContext() *MockContext {
	return &MockContext{
		MethodValue:     "GET",
		PathValue:       "/",
		Params:          map[string]string{},
		QueryValues:     map[string]string{},
		Headers:         map[string]string{},
		RequestCookies:  map[string]string{},
		LocalsMock:      map[any]any{},
		Store:           map[string]any{},
		ResponseHeaders: map[string]string{},
		ctx:             context.Background(),
	}
}

// WithJSONBody sets a JSON request body
func (m *MockContext) WithJSONBody(v any) *MockContext {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	m.RequestBody = body
	m.Headers[router.HeaderContentType] = "application/json"
	return m
}

// LastCookie returns the last cookie set under name, or nil
func (m *MockContext) LastCookie(name string) *router.Cookie {
	for i := len(m.SetCookies) - 1; i >= 0; i-- {
		if m.SetCookies[i].Name == name {
			return m.SetCookies[i]
		}
	}
	return nil
}

func (m *MockContext) Method() string {
	return m.MethodValue
}

func (m *MockContext) Path() string {
	return m.PathValue
}

func (m *MockContext) Param(name string, defaultValue ...string) string {
	if v, ok := m.Params[name]; ok {
		return v
	}
	return first(defaultValue)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	return atoi(m.Params[key], defaultValue)
}

func (m *MockContext) Query(name string, defaultValue string) string {
	if v, ok := m.QueryValues[name]; ok {
		return v
	}
	return defaultValue
}

func (m *MockContext) QueryInt(name string, defaultValue int) int {
	return atoi(m.QueryValues[name], defaultValue)
}

func (m *MockContext) Queries() map[string]string {
	return m.QueryValues
}

func (m *MockContext) Body() []byte {
	return m.RequestBody
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.LocalsMock[key] = value[0]
	}
	return m.LocalsMock[key]
}

func (m *MockContext) Render(name string, bind any, layouts ...string) error {
	return m.Called(name, bind).Error(0)
}

// Cookie records the cookie and applies it to RequestCookies, so the
// context behaves like a client jar across calls.
func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.SetCookies = append(m.SetCookies, cookie)
	if cookie.Value == "" || (!cookie.Expires.IsZero() && cookie.Expires.Before(time.Now())) {
		delete(m.RequestCookies, cookie.Name)
		return
	}
	m.RequestCookies[cookie.Name] = cookie.Value
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := m.RequestCookies[key]; ok {
		return v
	}
	return first(defaultValue)
}

func (m *MockContext) CookieParser(out any) error {
	return m.Called(out).Error(0)
}

func (m *MockContext) Redirect(location string, status ...int) error {
	return m.Called(location, status).Error(0)
}

func (m *MockContext) RedirectToRoute(routeName string, params router.ViewContext, status ...int) error {
	return m.Called(routeName, params, status).Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	return m.Called(fallback, status).Error(0)
}

func (m *MockContext) Header(name string) string {
	for k, v := range m.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func (m *MockContext) Referer() string {
	return m.Header("Referer")
}

func (m *MockContext) OriginalURL() string {
	if m.URL != "" {
		return m.URL
	}
	return m.PathValue
}

func (m *MockContext) Status(code int) router.Context {
	m.StatusCode = code
	return m
}

func (m *MockContext) Send(body []byte) error {
	return m.Called(body).Error(0)
}

func (m *MockContext) SendString(body string) error {
	return m.Called(body).Error(0)
}

func (m *MockContext) JSON(code int, v any) error {
	m.StatusCode = code
	m.Payload = v
	return m.Called(code, v).Error(0)
}

func (m *MockContext) NoContent(code int) error {
	m.StatusCode = code
	return m.Called(code).Error(0)
}

func (m *MockContext) SetHeader(key, value string) router.Context {
	m.ResponseHeaders[key] = value
	return m
}

func (m *MockContext) Set(key string, value any) {
	m.Store[key] = value
}

func (m *MockContext) Get(key string, def any) any {
	if v, ok := m.Store[key]; ok {
		return v
	}
	return def
}

func (m *MockContext) GetString(key string, def string) string {
	if v, ok := m.Store[key].(string); ok {
		return v
	}
	return def
}

func (m *MockContext) GetInt(key string, def int) int {
	if v, ok := m.Store[key].(int); ok {
		return v
	}
	return def
}

func (m *MockContext) GetBool(key string, def bool) bool {
	if v, ok := m.Store[key].(bool); ok {
		return v
	}
	return def
}

func (m *MockContext) Bind(v any) error {
	return json.Unmarshal(m.RequestBody, v)
}

func (m *MockContext) Context() context.Context {
	return m.ctx
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.ctx = ctx
}

func (m *MockContext) Next() error {
	m.NextCalls++
	return nil
}

func first(values []string) string {
	if len(values) > 0 {
		return values[0]
	}
	return ""
}

func atoi(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
