package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/magellan/pkg/apperrors"
)

func newTestOriginal() *OriginalDocument {
	return NewOriginalDocument("ORG1", "DOC1", "APP1", 10, 1, "Passport", true)
}

// advanceTo 沿唯一合法路径把原件推进到目标状态
func advanceTo(t *testing.T, target OriginalStatus) *OriginalDocument {
	t.Helper()
	o := newTestOriginal()
	now := time.Now()
	steps := []struct {
		at    OriginalStatus
		apply func() error
	}{
		{StatusDigitalApproved, func() error { return o.Request("12 Harbour Rd", false, nil, "ADV1", now) }},
		{StatusOriginalsRequested, func() error { return o.UpdateShipping("DHL", "TRK123", nil, now) }},
		{StatusOriginalsShipped, func() error { return o.ConfirmReceipt(ConditionGood, nil, "", "OPS1", now) }},
		{StatusOriginalsReceived, func() error { return o.CompleteVerification(VerificationVerified, "", true, "OPS1", now) }},
		{StatusOriginalsVerified, func() error { return o.MarkReadyForGovernment() }},
	}
	for _, s := range steps {
		if o.Status == target {
			return o
		}
		require.Equal(t, s.at, o.Status)
		require.NoError(t, s.apply())
	}
	require.Equal(t, target, o.Status)
	return o
}

func TestOriginalHappyPath(t *testing.T) {
	o := newTestOriginal()
	now := time.Now()
	deadline := now.AddDate(0, 0, 14)

	require.NoError(t, o.Request("12 Harbour Rd", true, &deadline, "ADV1", now))
	assert.Equal(t, StatusOriginalsRequested, o.Status)
	assert.True(t, o.IsUrgent)
	require.NotNil(t, o.RequestedAt)

	require.NoError(t, o.UpdateShipping("DHL", "TRK123", nil, now))
	assert.Equal(t, StatusOriginalsShipped, o.Status)
	assert.Equal(t, "DHL", o.CourierService)

	require.NoError(t, o.ConfirmReceipt(ConditionExcellent, nil, "", "OPS1", now))
	assert.Equal(t, StatusOriginalsReceived, o.Status)
	assert.Equal(t, ConditionExcellent, o.DocumentCondition)

	require.NoError(t, o.CompleteVerification(VerificationVerified, "sealed and notarized", true, "OPS1", now))
	assert.Equal(t, StatusOriginalsVerified, o.Status)
	assert.True(t, o.IsAuthenticated)
	require.NotNil(t, o.AuthenticatedAt)

	require.NoError(t, o.MarkReadyForGovernment())
	assert.Equal(t, StatusReadyForGovernment, o.Status)
}

// TestOriginalTransitionGrid 对全部状态与全部动作做穷举检查：
// 每个状态只放行自己唯一的下一步动作，其余全部拒绝且不产生变更。
func TestOriginalTransitionGrid(t *testing.T) {
	allStatuses := []OriginalStatus{
		StatusDigitalApproved,
		StatusOriginalsRequested,
		StatusOriginalsShipped,
		StatusOriginalsReceived,
		StatusOriginalsVerified,
		StatusReadyForGovernment,
	}
	actions := map[string]func(o *OriginalDocument) error{
		"request": func(o *OriginalDocument) error {
			return o.Request("12 Harbour Rd", false, nil, "ADV1", time.Now())
		},
		"updateShipping": func(o *OriginalDocument) error {
			return o.UpdateShipping("DHL", "TRK123", nil, time.Now())
		},
		"confirmReceipt": func(o *OriginalDocument) error {
			return o.ConfirmReceipt(ConditionGood, nil, "", "OPS1", time.Now())
		},
		"completeVerification": func(o *OriginalDocument) error {
			return o.CompleteVerification(VerificationVerified, "", false, "OPS1", time.Now())
		},
		"markReadyForGovernment": func(o *OriginalDocument) error {
			return o.MarkReadyForGovernment()
		},
	}
	allowed := map[OriginalStatus]string{
		StatusDigitalApproved:    "request",
		StatusOriginalsRequested: "updateShipping",
		StatusOriginalsShipped:   "confirmReceipt",
		StatusOriginalsReceived:  "completeVerification",
		StatusOriginalsVerified:  "markReadyForGovernment",
		StatusReadyForGovernment: "",
	}

	for _, status := range allStatuses {
		for name, action := range actions {
			t.Run(string(status)+"/"+name, func(t *testing.T) {
				o := advanceTo(t, status)
				err := action(o)
				if allowed[status] == name {
					assert.NoError(t, err)
				} else {
					require.Error(t, err)
					assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
					assert.Equal(t, status, o.Status)
				}
			})
		}
	}
}

func TestRequestRequiresShippingAddress(t *testing.T) {
	o := newTestOriginal()
	err := o.Request("", false, nil, "ADV1", time.Now())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	assert.Equal(t, StatusDigitalApproved, o.Status)
}

func TestShippingRequiresCourierAndTracking(t *testing.T) {
	o := advanceTo(t, StatusOriginalsRequested)
	require.Error(t, o.UpdateShipping("", "TRK123", nil, time.Now()))
	require.Error(t, o.UpdateShipping("DHL", "", nil, time.Now()))
	assert.Equal(t, StatusOriginalsRequested, o.Status)
}

func TestDamagedReceiptRequiresQualityNotes(t *testing.T) {
	o := advanceTo(t, StatusOriginalsShipped)
	err := o.ConfirmReceipt(ConditionDamaged, nil, "", "OPS1", time.Now())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	assert.Equal(t, StatusOriginalsShipped, o.Status)

	require.NoError(t, o.ConfirmReceipt(ConditionDamaged, nil, "water damage on page 3", "OPS1", time.Now()))
	assert.Equal(t, StatusOriginalsReceived, o.Status)
}

func TestReceiptRejectsUnknownCondition(t *testing.T) {
	o := advanceTo(t, StatusOriginalsShipped)
	err := o.ConfirmReceipt(DocumentCondition("pristine"), nil, "", "OPS1", time.Now())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestVerificationRejectedStaysReceived(t *testing.T) {
	o := advanceTo(t, StatusOriginalsReceived)

	err := o.CompleteVerification(VerificationRejected, "", false, "OPS1", time.Now())
	require.Error(t, err, "rejection without notes must fail")

	require.NoError(t, o.CompleteVerification(VerificationRejected, "signature page missing", false, "OPS1", time.Now()))
	assert.Equal(t, StatusOriginalsReceived, o.Status, "rejected original stays received for re-verification")
	assert.Equal(t, "signature page missing", o.VerificationNotes)

	// 复检通过后正常前进
	require.NoError(t, o.CompleteVerification(VerificationVerified, "replacement accepted", false, "OPS1", time.Now()))
	assert.Equal(t, StatusOriginalsVerified, o.Status)
}

func TestVerificationWithoutAuthentication(t *testing.T) {
	o := advanceTo(t, StatusOriginalsReceived)
	require.NoError(t, o.CompleteVerification(VerificationVerified, "", false, "OPS1", time.Now()))
	assert.False(t, o.IsAuthenticated)
	assert.Nil(t, o.AuthenticatedAt)
}

func TestCancelWindow(t *testing.T) {
	assert.False(t, advanceTo(t, StatusDigitalApproved).CanCancel())
	assert.True(t, advanceTo(t, StatusOriginalsRequested).CanCancel())
	assert.True(t, advanceTo(t, StatusOriginalsShipped).CanCancel())
	assert.True(t, advanceTo(t, StatusOriginalsReceived).CanCancel())
	assert.True(t, advanceTo(t, StatusOriginalsVerified).CanCancel())
	assert.False(t, advanceTo(t, StatusReadyForGovernment).CanCancel())

	assert.False(t, advanceTo(t, StatusOriginalsRequested).CancellationNeedsWarning())
	assert.True(t, advanceTo(t, StatusOriginalsShipped).CancellationNeedsWarning())
	assert.True(t, advanceTo(t, StatusOriginalsReceived).CancellationNeedsWarning())
}
