package router

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"cierrecaja/internal/config"
	"cierrecaja/internal/dto"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

type testEnv struct {
	server *httptest.Server
	token  string
}

// setupMemoria builds the API with closings, sessions and locks in process.
func setupMemoria(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:                "test",
		RateLimitPerMinute: 10000,
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		SessionTTLMinutes:  60,
		BusinessName:       "Heladería Wafix",
		ShareDefaultRegion: "CL",
	}
	deps := Deps{}
	srv := httptest.NewServer(New(cfg, deps, NuevosServicios(cfg, deps)))
	t.Cleanup(srv.Close)

	resp := do(t, srv, http.MethodPost, "/v1/auth/anonimo", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tok dto.TokenResponse
	decodeJSON(t, resp, &tok)
	require.NotEmpty(t, tok.AccessToken)

	return &testEnv{server: srv, token: tok.AccessToken}
}

func cierreEjemplo() map[string]any {
	return map[string]any{
		"fecha":           "2026-03-14",
		"saldo_anterior":  100000,
		"gastos_efectivo": 50000,
		"ventas": map[string]int64{
			"efectivo":      400000,
			"tarjeta":       120000,
			"transferencia": 30000,
			"uber_eats":     25000,
			"junaeb":        15000,
		},
		"conteo_registrado": true,
		"conteo":            map[string]int64{"20000": 20, "10000": 4, "5000": 1, "2000": 2},
	}
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestHealth_Memoria(t *testing.T) {
	env := setupMemoria(t)

	resp := do(t, env.server, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	decodeJSON(t, resp, &body)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "memory", body["db"])
	assert.Equal(t, "memory", body["redis"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRutasProtegidas_SinToken(t *testing.T) {
	env := setupMemoria(t)

	for _, path := range []string{"/v1/cierres", "/v1/catalogo", "/v1/sesiones/x"} {
		resp := do(t, env.server, http.MethodGet, path, nil, "")
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
	resp := do(t, env.server, http.MethodGet, "/v1/cierres", nil, "no-es-un-jwt")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_Refresh(t *testing.T) {
	env := setupMemoria(t)

	resp := do(t, env.server, http.MethodPost, "/v1/auth/anonimo", nil, "")
	var tok dto.TokenResponse
	decodeJSON(t, resp, &tok)

	resp = do(t, env.server, http.MethodPost, "/v1/auth/refresh",
		jsonBody(t, dto.RefreshRequest{RefreshToken: tok.RefreshToken}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var renovado dto.TokenResponse
	decodeJSON(t, resp, &renovado)
	assert.Equal(t, tok.UsuarioID, renovado.UsuarioID)

	resp = do(t, env.server, http.MethodPost, "/v1/auth/refresh", jsonBody(t, map[string]string{}), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCatalogo(t *testing.T) {
	env := setupMemoria(t)

	resp := do(t, env.server, http.MethodGet, "/v1/catalogo", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cat dto.CatalogoResponse
	decodeJSON(t, resp, &cat)
	assert.Len(t, cat.Canales, 9)
	assert.Equal(t, []int64{20000, 10000, 5000, 2000, 1000, 500, 100, 50, 10}, cat.Denominaciones)
}

func TestConciliacion_Previsualizar(t *testing.T) {
	env := setupMemoria(t)

	resp := do(t, env.server, http.MethodPost, "/v1/conciliacion", jsonBody(t, map[string]any{
		"ventas":          map[string]string{"efectivo": "400.000", "tarjeta": "abc"},
		"saldo_anterior":  "100000",
		"gastos_efectivo": "$50.000",
		"conteo":          map[string]string{"20000": "22", "10000": "2"},
	}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res dto.ResultadoResponse
	decodeJSON(t, resp, &res)
	assert.EqualValues(t, 400000, res.VentaTotal)
	assert.EqualValues(t, 450000, res.SaldoEsperado)
	assert.EqualValues(t, 460000, res.TotalEnCaja)
	assert.EqualValues(t, 10000, res.Diferencia)
	assert.Equal(t, "+$10.000", res.Formateado.Diferencia)
	assert.Equal(t, "advertencia", res.Desvio.Clasificacion)
}

func TestCierres_CRUD(t *testing.T) {
	env := setupMemoria(t)

	resp := do(t, env.server, http.MethodPost, "/v1/cierres", jsonBody(t, cierreEjemplo()), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var creado dto.CierreResponse
	decodeJSON(t, resp, &creado)
	require.NotEmpty(t, creado.ID)
	assert.Equal(t, "2026-03-14", creado.Fecha)
	assert.EqualValues(t, 590000, creado.Resultado.VentaTotal)
	assert.EqualValues(t, -1000, creado.Resultado.Diferencia)

	resp = do(t, env.server, http.MethodGet, "/v1/cierres/"+creado.ID, nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	cambio := cierreEjemplo()
	cambio["gastos_efectivo"] = 51000
	resp = do(t, env.server, http.MethodPut, "/v1/cierres/"+creado.ID, jsonBody(t, cambio), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var editado dto.CierreResponse
	decodeJSON(t, resp, &editado)
	assert.Equal(t, creado.ID, editado.ID)
	assert.EqualValues(t, 0, editado.Resultado.Diferencia)

	resp = do(t, env.server, http.MethodGet, "/v1/cierres?desde=2026-03-01&hasta=2026-03-31", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lista dto.CierreListResponse
	decodeJSON(t, resp, &lista)
	assert.EqualValues(t, 1, lista.Total)

	resp = do(t, env.server, http.MethodDelete, "/v1/cierres/"+creado.ID, nil, env.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, env.server, http.MethodGet, "/v1/cierres/"+creado.ID, nil, env.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCierres_Validacion(t *testing.T) {
	env := setupMemoria(t)

	malaFecha := cierreEjemplo()
	malaFecha["fecha"] = "14-03-2026"
	canalDesconocido := cierreEjemplo()
	canalDesconocido["ventas"] = map[string]int64{"rappi": 1000}
	saldoEnorme := cierreEjemplo()
	saldoEnorme["saldo_anterior"] = int64(math.MaxInt64)
	ventaEnorme := cierreEjemplo()
	ventaEnorme["ventas"] = map[string]int64{"tarjeta": 1_000_000_000_000_000, "junaeb": 1}
	conteoEnorme := cierreEjemplo()
	conteoEnorme["conteo"] = map[string]int64{"20000": 1 << 62}

	casos := map[string]map[string]any{
		"fecha":  malaFecha,
		"canal":  canalDesconocido,
		"saldo":  saldoEnorme,
		"venta":  ventaEnorme,
		"conteo": conteoEnorme,
	}
	for name, body := range casos {
		resp := do(t, env.server, http.MethodPost, "/v1/cierres", jsonBody(t, body), env.token)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, name)
	}

	resp := do(t, env.server, http.MethodGet, "/v1/cierres/no-es-uuid", nil, env.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, env.server, http.MethodGet, "/v1/cierres?desde=2026-03-10&hasta=2026-03-01", nil, env.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCierres_Exportacion(t *testing.T) {
	env := setupMemoria(t)

	resp := do(t, env.server, http.MethodPost, "/v1/cierres", jsonBody(t, cierreEjemplo()), env.token)
	var creado dto.CierreResponse
	decodeJSON(t, resp, &creado)

	cases := map[string]string{
		"/v1/cierres/" + creado.ID + "/pdf": "application/pdf",
		"/v1/cierres/" + creado.ID + "/qr":  "image/png",
		"/v1/cierres/export.xlsx":           "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
	for path, mime := range cases {
		resp := do(t, env.server, http.MethodGet, path, nil, env.token)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, mime, resp.Header.Get("Content-Type"), path)
	}

	resp = do(t, env.server, http.MethodGet, "/v1/cierres/"+creado.ID+"/compartir?telefono=%2B56991234567", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var share dto.CompartirResponse
	decodeJSON(t, resp, &share)
	assert.Contains(t, share.Enlace, "https://wa.me/56991234567?text=")

	resp = do(t, env.server, http.MethodGet, "/v1/cierres/"+creado.ID+"/compartir?telefono=123", nil, env.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCierres_EnviarSinColas(t *testing.T) {
	env := setupMemoria(t)

	resp := do(t, env.server, http.MethodPost, "/v1/cierres", jsonBody(t, cierreEjemplo()), env.token)
	var creado dto.CierreResponse
	decodeJSON(t, resp, &creado)

	resp = do(t, env.server, http.MethodPost, "/v1/cierres/"+creado.ID+"/enviar", jsonBody(t, map[string]any{}), env.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, env.server, http.MethodPost, "/v1/cierres/"+creado.ID+"/enviar",
		jsonBody(t, map[string]any{"telegram": true}), env.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSesiones_Flujo(t *testing.T) {
	env := setupMemoria(t)

	resp := do(t, env.server, http.MethodPost, "/v1/sesiones", nil, env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var ses dto.SesionResponse
	decodeJSON(t, resp, &ses)
	require.NotEmpty(t, ses.ID)

	resp = do(t, env.server, http.MethodPatch, "/v1/sesiones/"+ses.ID, jsonBody(t, map[string]any{
		"fecha":             "2026-03-14",
		"ventas":            map[string]string{"efectivo": "400000", "tarjeta": "120.000"},
		"saldo_anterior":    "100000",
		"conteo_registrado": true,
		"conteo":            map[string]string{"20000": "25"},
	}), env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &ses)
	assert.Equal(t, "400.000", ses.Ventas["efectivo"])
	assert.EqualValues(t, 520000, ses.Resultado.VentaTotal)
	assert.EqualValues(t, 500000, ses.Resultado.SaldoEsperado)
	assert.EqualValues(t, 0, ses.Resultado.Diferencia)

	resp = do(t, env.server, http.MethodPost, "/v1/sesiones/"+ses.ID+"/enviar", nil, env.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var enviado dto.EnviarSesionResponse
	decodeJSON(t, resp, &enviado)
	assert.EqualValues(t, 520000, enviado.Cierre.Resultado.VentaTotal)

	resp = do(t, env.server, http.MethodGet, "/v1/cierres", nil, env.token)
	var lista dto.CierreListResponse
	decodeJSON(t, resp, &lista)
	assert.EqualValues(t, 1, lista.Total)

	resp = do(t, env.server, http.MethodPost, "/v1/sesiones/editar/"+enviado.Cierre.ID, nil, env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var edicion dto.SesionResponse
	decodeJSON(t, resp, &edicion)
	require.NotNil(t, edicion.CierreID)
	assert.Equal(t, enviado.Cierre.ID, *edicion.CierreID)

	resp = do(t, env.server, http.MethodDelete, "/v1/sesiones/"+edicion.ID, nil, env.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, env.server, http.MethodGet, "/v1/sesiones/"+edicion.ID, nil, env.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSesiones_EnviarVacio(t *testing.T) {
	env := setupMemoria(t)

	resp := do(t, env.server, http.MethodPost, "/v1/sesiones", nil, env.token)
	var ses dto.SesionResponse
	decodeJSON(t, resp, &ses)

	resp = do(t, env.server, http.MethodPost, "/v1/sesiones/"+ses.ID+"/enviar", nil, env.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, env.server, http.MethodPost, "/v1/sesiones/editar/00000000-0000-0000-0000-000000000001", nil, env.token)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
