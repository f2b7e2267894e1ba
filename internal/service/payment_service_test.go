package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"maintech_backend/internal/config"
	"maintech_backend/internal/model"
	"maintech_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentEnv(t *testing.T, gatewayURL string) (*testEnv, *PaymentService) {
	t.Helper()
	env := newTestEnv(t)
	cfg := &config.PaymentConfig{
		BaseURL:       gatewayURL,
		AccessToken:   "test-token",
		WebhookSecret: "test-secret",
		SuccessURL:    "https://example.dev/success",
		FailureURL:    "https://example.dev/failure",
	}
	payment := NewPaymentService(env.repos.order, env.repos.course, env.repos.user,
		NewEmailService(&env.cfg.Email), cfg)
	return env, payment
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func paymentEvent(orderID, paymentID, status string) []byte {
	payload, _ := json.Marshal(map[string]interface{}{
		"type": "payment",
		"data": map[string]string{
			"id":                 paymentID,
			"status":             status,
			"external_reference": orderID,
		},
	})
	return payload
}

func TestCheckoutFreeCourseEnrollsDirectly(t *testing.T) {
	env, payment := newPaymentEnv(t, "http://gateway.invalid")
	user := env.createUser(t, "free@test.dev")
	course := env.createCourse(t, "free-course")
	course.Price = 0
	require.NoError(t, env.repos.course.UpdateCourse(course))

	result, err := payment.Checkout(user.ID, course.ID)
	require.NoError(t, err)

	assert.True(t, result.Enrolled)
	assert.Empty(t, result.InitPoint)
	assert.Equal(t, model.OrderStatusApproved, result.Status)

	enrollment, err := env.repos.order.FindEnrollment(user.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, enrollment.Active)
}

func TestCheckoutPaidCourseCreatesPreference(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checkout/preferences", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req preferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 1)
		assert.NotEmpty(t, req.ExternalReference)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"pref-123","init_point":"https://gateway.dev/pay/pref-123"}`)
	}))
	defer gateway.Close()

	env, payment := newPaymentEnv(t, gateway.URL)
	user := env.createUser(t, "paid@test.dev")
	course := env.createCourse(t, "paid-course")

	result, err := payment.Checkout(user.ID, course.ID)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, result.Status)
	assert.Equal(t, "https://gateway.dev/pay/pref-123", result.InitPoint)
	assert.False(t, result.Enrolled)

	order, err := env.repos.order.FindByID(result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "pref-123", order.PreferenceID)
	// 下单时报名尚未开通
	_, err = env.repos.order.FindEnrollment(user.ID, course.ID)
	assert.Error(t, err)
}

func TestCheckoutRejectsActiveEnrollment(t *testing.T) {
	env, payment := newPaymentEnv(t, "http://gateway.invalid")
	user := env.createUser(t, "dupe@test.dev")
	course := env.createCourse(t, "dupe-course")
	enroll(t, env, user.ID, course.ID)

	_, err := payment.Checkout(user.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)
}

func TestCheckoutUnpublishedCourse(t *testing.T) {
	env, payment := newPaymentEnv(t, "http://gateway.invalid")
	user := env.createUser(t, "unpub@test.dev")
	course := env.createCourse(t, "unpub-course")
	course.IsPublished = false
	require.NoError(t, env.repos.course.UpdateCourse(course))

	_, err := payment.Checkout(user.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotPublished)
}

func createPendingOrder(t *testing.T, env *testEnv, userID, courseID uint) *model.Order {
	t.Helper()
	order := &model.Order{
		UserID:   userID,
		CourseID: courseID,
		Amount:   100,
		Currency: "PEN",
		Status:   model.OrderStatusPending,
	}
	require.NoError(t, env.repos.order.Create(order))
	return order
}

func TestWebhookApprovedSettlesOrder(t *testing.T) {
	env, payment := newPaymentEnv(t, "http://gateway.invalid")
	user := env.createUser(t, "webhook@test.dev")
	course := env.createCourse(t, "webhook-course")
	order := createPendingOrder(t, env, user.ID, course.ID)

	payload := paymentEvent(order.ID, "pay-1", "approved")
	settled, err := payment.HandleWebhook(payload, sign("test-secret", payload))
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusApproved, settled.Status)
	assert.Equal(t, "pay-1", settled.PaymentID)
	require.NotNil(t, settled.PaidAt)

	enrollment, err := env.repos.order.FindEnrollment(user.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, enrollment.Active)
}

func TestWebhookRejectedDoesNotEnroll(t *testing.T) {
	env, payment := newPaymentEnv(t, "http://gateway.invalid")
	user := env.createUser(t, "rejected@test.dev")
	course := env.createCourse(t, "rejected-course")
	order := createPendingOrder(t, env, user.ID, course.ID)

	payload := paymentEvent(order.ID, "pay-2", "rejected")
	settled, err := payment.HandleWebhook(payload, sign("test-secret", payload))
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusRejected, settled.Status)
	_, err = env.repos.order.FindEnrollment(user.ID, course.ID)
	assert.Error(t, err)
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	env, payment := newPaymentEnv(t, "http://gateway.invalid")
	user := env.createUser(t, "replay@test.dev")
	course := env.createCourse(t, "replay-course")
	order := createPendingOrder(t, env, user.ID, course.ID)

	payload := paymentEvent(order.ID, "pay-3", "approved")
	_, err := payment.HandleWebhook(payload, sign("test-secret", payload))
	require.NoError(t, err)

	// 重放同一事件，甚至状态翻转的事件，都不再改动已落账订单
	replay := paymentEvent(order.ID, "pay-3", "rejected")
	settled, err := payment.HandleWebhook(replay, sign("test-secret", replay))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusApproved, settled.Status)

	var count int64
	require.NoError(t, env.db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestWebhookInvalidSignature(t *testing.T) {
	env, payment := newPaymentEnv(t, "http://gateway.invalid")
	user := env.createUser(t, "badsig@test.dev")
	course := env.createCourse(t, "badsig-course")
	order := createPendingOrder(t, env, user.ID, course.ID)

	payload := paymentEvent(order.ID, "pay-4", "approved")
	_, err := payment.HandleWebhook(payload, sign("wrong-secret", payload))
	assert.ErrorIs(t, err, util.ErrInvalidSignature)

	// 订单保持原状
	unchanged, findErr := env.repos.order.FindByID(order.ID)
	require.NoError(t, findErr)
	assert.Equal(t, model.OrderStatusPending, unchanged.Status)
}

func TestWebhookPendingStatusLeavesOrderOpen(t *testing.T) {
	env, payment := newPaymentEnv(t, "http://gateway.invalid")
	user := env.createUser(t, "pending@test.dev")
	course := env.createCourse(t, "pending-course")
	order := createPendingOrder(t, env, user.ID, course.ID)

	payload := paymentEvent(order.ID, "pay-5", "in_process")
	settled, err := payment.HandleWebhook(payload, sign("test-secret", payload))
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, settled.Status)
}

func TestWebhookUnknownOrder(t *testing.T) {
	_, payment := newPaymentEnv(t, "http://gateway.invalid")

	payload := paymentEvent("no-such-order", "pay-6", "approved")
	_, err := payment.HandleWebhook(payload, sign("test-secret", payload))
	assert.ErrorIs(t, err, util.ErrOrderNotFound)
}
