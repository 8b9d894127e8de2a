package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/diqie123/school-cashier-pro/internal/config"
	"github.com/diqie123/school-cashier-pro/internal/report"
	"github.com/diqie123/school-cashier-pro/internal/repository/memory"
)

func testConfig() config.Config {
	return config.Config{
		StorageDriver:      config.DriverMemory,
		JWTSecret:          "test-secret",
		JWTExpiresMinutes:  60,
		CORSOrigins:        "*",
		Timezone:           "Asia/Jakarta",
		LoginRateLimit:     100,
		SPPFeeTiers:        map[string]int64{"X": 450000, "XI": 500000, "XII": 550000},
		DefaultSPPFee:      500000,
		PlaceholderFee:     150000,
		DiscountPolicy:     "reject",
		CodeStrategy:       "sequence",
		StudentSearchLimit: 5,
		CommitTimeout:      5 * time.Second,
		RequestTimeout:     5 * time.Second,
		SessionIdleTTL:     30 * time.Minute,
		SchoolName:         "SMA Negeri 1",
		AcademicYear:       "2026/2027",
	}
}

type client struct {
	t   *testing.T
	app *fiber.App
}

func newClient(t *testing.T) *client {
	t.Helper()
	a, err := Build(testConfig(), MemoryStores(memory.NewSeeded()))
	require.NoError(t, err)
	return &client{t: t, app: a.Fiber()}
}

func (c *client) do(method, path, token string, body any) (int, []byte) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.app.Test(req, 10_000)
	require.NoError(c.t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, out
}

func (c *client) login(username, password string) string {
	c.t.Helper()
	code, body := c.do("POST", "/api/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(c.t, fiber.StatusOK, code, string(body))
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(body, &res))
	require.NotEmpty(c.t, res.Token)
	return res.Token
}

type sessionView struct {
	ID            string `json:"id"`
	Step          string `json:"step"`
	CanCommit     bool   `json:"canCommit"`
	SearchResults []struct {
		ID  string `json:"id"`
		NIS string `json:"nis"`
	} `json:"searchResults"`
	Items []struct {
		PaymentType string `json:"jenisPembayaran"`
		Amount      int64  `json:"nominal"`
	} `json:"items"`
	Summary struct {
		Subtotal int64 `json:"subtotal"`
		Total    int64 `json:"total"`
		Change   int64 `json:"kembalian"`
	} `json:"summary"`
	Transaction *struct {
		ID   string `json:"id"`
		Code string `json:"transactionCode"`
	} `json:"transaction"`
	Notices []struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"notifications"`
}

func decodeView(t *testing.T, body []byte) sessionView {
	t.Helper()
	var v sessionView
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestAuth(t *testing.T) {
	c := newClient(t)

	code, _ := c.do("POST", "/api/auth/login", "", map[string]string{"username": "kasir", "password": "salah"})
	require.Equal(t, fiber.StatusUnauthorized, code)

	code, body := c.do("GET", "/api/transactions", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, code)
	require.Contains(t, string(body), "message")

	token := c.login("kasir", "kasir123")
	code, body = c.do("GET", "/api/auth/profile", token, nil)
	require.Equal(t, fiber.StatusOK, code)
	require.Contains(t, string(body), `"role":"kasir"`)
	require.Contains(t, string(body), `"nama":"Siti Nurhaliza"`)
}

func TestCheckoutFlow_CashExact(t *testing.T) {
	c := newClient(t)
	token := c.login("kasir", "kasir123")

	code, body := c.do("POST", "/api/checkout/sessions", token, nil)
	require.Equal(t, fiber.StatusCreated, code, string(body))
	v := decodeView(t, body)
	require.Equal(t, "select-student", v.Step)
	base := "/api/checkout/sessions/" + v.ID

	code, body = c.do("GET", base+"/students?q=12345", token, nil)
	require.Equal(t, fiber.StatusOK, code, string(body))
	v = decodeView(t, body)
	require.Len(t, v.SearchResults, 1)

	code, body = c.do("POST", base+"/student", token, map[string]string{"studentId": v.SearchResults[0].ID})
	require.Equal(t, fiber.StatusOK, code, string(body))
	require.Equal(t, "payment-details", decodeView(t, body).Step)

	// SPP for an XI class uses the XI tier
	code, body = c.do("POST", base+"/items", token, map[string]any{"jenisPembayaran": "SPP"})
	require.Equal(t, fiber.StatusOK, code, string(body))
	v = decodeView(t, body)
	require.Len(t, v.Items, 1)
	require.Equal(t, int64(500000), v.Items[0].Amount)

	code, body = c.do("PUT", base+"/payment", token, map[string]any{"metodePembayaran": "Tunai", "uangDiterima": 500000})
	require.Equal(t, fiber.StatusOK, code, string(body))

	code, body = c.do("POST", base+"/proceed", token, nil)
	require.Equal(t, fiber.StatusOK, code, string(body))
	v = decodeView(t, body)
	require.Equal(t, "confirmation", v.Step)
	require.True(t, v.CanCommit)

	code, body = c.do("POST", base+"/commit", token, nil)
	require.Equal(t, fiber.StatusOK, code, string(body))
	v = decodeView(t, body)
	require.Equal(t, "success", v.Step)
	require.NotNil(t, v.Transaction)
	require.Regexp(t, `^TRX-\d{8}-0001$`, v.Transaction.Code)
	require.Equal(t, int64(0), v.Summary.Change)
	require.NotEmpty(t, v.Notices)

	code, body = c.do("GET", "/api/transactions/code/"+strings.ToLower(v.Transaction.Code), token, nil)
	require.Equal(t, fiber.StatusOK, code, string(body))
	require.Contains(t, string(body), `"status":"Lunas"`)
	require.Contains(t, string(body), `"kembalian":0`)

	code, body = c.do("GET", "/api/transactions/"+v.Transaction.ID+"/receipt", token, nil)
	require.Equal(t, fiber.StatusOK, code)
	require.Contains(t, string(body), v.Transaction.Code)
	require.Contains(t, string(body), "SMA Negeri 1")

	code, body = c.do("GET", "/api/dashboard", token, nil)
	require.Equal(t, fiber.StatusOK, code)
	require.Contains(t, string(body), `"pemasukanHariIni":500000`)
}

func TestCheckoutFlow_InsufficientCashStaysOnConfirmation(t *testing.T) {
	c := newClient(t)
	token := c.login("kasir", "kasir123")

	_, body := c.do("POST", "/api/checkout/sessions", token, nil)
	base := "/api/checkout/sessions/" + decodeView(t, body).ID

	_, body = c.do("GET", base+"/students?q=Ahmad", token, nil)
	studentID := decodeView(t, body).SearchResults[0].ID
	c.do("POST", base+"/student", token, map[string]string{"studentId": studentID})
	c.do("POST", base+"/items", token, map[string]any{"jenisPembayaran": "SPP", "nominal": 500000})
	c.do("PUT", base+"/payment", token, map[string]any{"metodePembayaran": "Tunai", "uangDiterima": 400000})
	c.do("POST", base+"/proceed", token, nil)

	code, body := c.do("POST", base+"/commit", token, nil)
	require.Equal(t, fiber.StatusUnprocessableEntity, code, string(body))

	var res struct {
		Session sessionView `json:"session"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	require.Equal(t, "confirmation", res.Session.Step)
	require.False(t, res.Session.CanCommit)
	require.NotEmpty(t, res.Session.Notices)
}

func TestCheckoutSession_OwnedByCreator(t *testing.T) {
	c := newClient(t)
	kasir := c.login("kasir", "kasir123")
	admin := c.login("admin", "admin123")

	_, body := c.do("POST", "/api/checkout/sessions", kasir, nil)
	id := decodeView(t, body).ID

	code, _ := c.do("GET", "/api/checkout/sessions/"+id, admin, nil)
	require.Equal(t, fiber.StatusNotFound, code)

	code, _ = c.do("POST", "/api/checkout/sessions/"+id+"/proceed", kasir, nil)
	require.Equal(t, fiber.StatusConflict, code, "proceed is not allowed in select-student")

	code, _ = c.do("DELETE", "/api/checkout/sessions/"+id, kasir, nil)
	require.Equal(t, fiber.StatusNoContent, code)
}

func TestDirectCommit(t *testing.T) {
	c := newClient(t)
	kasir := c.login("kasir", "kasir123")
	manager := c.login("manager", "manager123")

	_, body := c.do("GET", "/api/students/search?q=12346", kasir, nil)
	var found struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body, &found))
	require.Len(t, found.Items, 1)

	draft := map[string]any{
		"studentId": found.Items[0].ID,
		"items": []map[string]any{
			{"jenisPembayaran": "SPP", "nominal": 500000},
			{"jenisPembayaran": "Uang Ujian", "nominal": 100000},
		},
		"subtotal":         600000,
		"diskon":           50000,
		"total":            550000,
		"metodePembayaran": "Transfer Bank",
	}

	code, _ := c.do("POST", "/api/transactions", manager, draft)
	require.Equal(t, fiber.StatusForbidden, code)

	code, body = c.do("POST", "/api/transactions", kasir, draft)
	require.Equal(t, fiber.StatusCreated, code, string(body))
	require.NotContains(t, string(body), "uangDiterima")
	require.NotContains(t, string(body), "kembalian")

	draft["total"] = 600000
	code, _ = c.do("POST", "/api/transactions", kasir, draft)
	require.Equal(t, fiber.StatusUnprocessableEntity, code)

	code, body = c.do("GET", "/api/transactions?metodePembayaran=Transfer%20Bank", manager, nil)
	require.Equal(t, fiber.StatusOK, code)
	require.Contains(t, string(body), `"total":550000`)

	code, _ = c.do("GET", "/api/transactions?metodePembayaran=Cek", manager, nil)
	require.Equal(t, fiber.StatusUnprocessableEntity, code)

	req := httptest.NewRequest("GET", "/api/transactions/export", nil)
	req.Header.Set("Authorization", "Bearer "+manager)
	resp, err := c.app.Test(req, 10_000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, report.ContentType, resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "laporan_transaksi_")
}

func TestStudentAndSettingsGuards(t *testing.T) {
	c := newClient(t)
	kasir := c.login("kasir", "kasir123")
	admin := c.login("admin", "admin123")

	student := map[string]any{"nis": "99999", "nama": "Siswa Baru", "kelas": "x-ipa-2", "noTelpWali": "0812"}
	code, _ := c.do("POST", "/api/students", kasir, student)
	require.Equal(t, fiber.StatusForbidden, code)

	code, body := c.do("POST", "/api/students", admin, student)
	require.Equal(t, fiber.StatusCreated, code, string(body))
	require.Contains(t, string(body), `"kelas":"X-IPA-2"`)

	code, _ = c.do("POST", "/api/students", admin, student)
	require.Equal(t, fiber.StatusConflict, code)

	code, _ = c.do("POST", "/api/students", admin, map[string]any{"nis": "1"})
	require.Equal(t, fiber.StatusUnprocessableEntity, code)

	code, _ = c.do("PUT", "/api/settings", kasir, map[string]any{"namaSekolah": "X"})
	require.Equal(t, fiber.StatusForbidden, code)

	code, body = c.do("PUT", "/api/settings", admin, map[string]any{"nominalSPP": map[string]int64{"xi": 600000}})
	require.Equal(t, fiber.StatusOK, code, string(body))
	require.Contains(t, string(body), `"XI":600000`)

	code, body = c.do("GET", "/api/settings", kasir, nil)
	require.Equal(t, fiber.StatusOK, code)
	require.Contains(t, string(body), `"namaSekolah":"SMA Negeri 1"`)
}
