package bookings

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tripenjoy/internal/shared/actor"
	"tripenjoy/internal/shared/middleware"
	"tripenjoy/internal/shared/utils/response"
	"tripenjoy/internal/vouchers"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAuth(userID uuid.UUID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID.String())
		c.Set(middleware.ContextUserRole, role)
		c.Next()
	}
}

func newRouter(svc Service, userID uuid.UUID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupBookingRoutes(r.Group("/api/v1"), NewController(svc), fakeAuth(userID, role))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, response.StandardApiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.StandardApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestController_CreateAndCancel(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	f.expectRefund(nil)
	userID := uuid.New()
	r := newRouter(f.svc, userID, actor.RoleUser)

	w, resp := doJSON(t, r, http.MethodPost, "/api/v1/bookings", f.request(BookingItemRequest{RoomTypeID: f.deluxe.ID, Quantity: 1}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "success", resp.Status)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, string(StatusPending), data["status"])
	bookingID := data["id"].(string)

	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/bookings/"+bookingID+"/cancel", CancelBookingRequest{Reason: "sick"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = doJSON(t, r, http.MethodPost, "/api/v1/bookings/"+bookingID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error", resp.Status)
}

func TestController_Errors(t *testing.T) {
	f := setupFixture(t, vouchers.RetainOnCancel)
	r := newRouter(f.svc, uuid.New(), actor.RoleUser)

	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/bookings", map[string]interface{}{"property_id": f.property.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/bookings/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/bookings/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// users cannot confirm
	w, _ = doJSON(t, r, http.MethodPost, "/api/v1/bookings/"+uuid.NewString()+"/confirm", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
