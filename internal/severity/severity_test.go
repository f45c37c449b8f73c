package severity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/redactyl/alertlens/internal/types"
)

func TestResolve_BusinessProtection(t *testing.T) {
	tests := []struct {
		alert       string
		explanation string
		want        types.Severity
		reasonHas   string
	}{
		{"DEBUG Mode Activation", "System was accessed in DEBUG mode.", types.SevCritical, "debug"},
		{"SAP_ALL Profile Granted", "", types.SevCritical, "sap_all"},
		{"SAP_NEW Profile Granted", "", types.SevCritical, "sap_new"},
		{"PO for One-Time Vendor", "", types.SevCritical, "one-time"},
		{"Unauthorized Transaction Detected", "", types.SevCritical, "unauthorized transaction"},
		{"Rarely Used Vendors", "", types.SevHigh, "rarely used vendor"},
		{"Rarely Used Vendor Analysis", "", types.SevHigh, "rarely used vendor"},
		{"Modified Vendor Bank Account", "", types.SevHigh, "modified vendor bank"},
		{"Inventory Variance Report", "Inventory count differs from system records.", types.SevHigh, "inventory"},
		{"Sensitive Transaction Usage", "", types.SevHigh, "sensitive transaction"},
		{"Vendor Bank Changed and Reversed", "", types.SevHigh, "vendor bank"},
		{"Alternative Payee Assignment", "Alternative payee was assigned to vendor payment.", types.SevHigh, "alternative payee"},
		{"Exceptional Posting by GL Account", "", types.SevMedium, "exceptional posting"},
		{"PO Approved by Creator", "", types.SevMedium, "approved by creator"},
		{"Retroactively Created PO", "Purchase order created retroactive to invoice date.", types.SevMedium, "retroactive"},
		{"Vendor Payment Terms Mismatch", "Payment terms mismatch between PO and vendor master.", types.SevMedium, "payment terms"},
		{"One-Time Vendor Created", "", types.SevLow, "one-time vendor created"},
		{"Customer Credit Limit Changed", "", types.SevLow, "credit limit"},
		{"Inactive Vendor", "", types.SevLow, "inactive vendor"},
		{"Unknown Alert Type XYZ", "", types.SevHigh, "default"},
	}
	r := Default()
	for _, tt := range tests {
		t.Run(tt.alert, func(t *testing.T) {
			sev, reason := r.Resolve(tt.alert, types.BusinessProtection, tt.explanation, "")
			assert.Equal(t, tt.want, sev, reason)
			assert.Contains(t, strings.ToLower(reason), tt.reasonHas)
		})
	}
}

func TestResolve_BusinessControl(t *testing.T) {
	tests := []struct {
		alert       string
		explanation string
		want        types.Severity
	}{
		{"Unbilled Delivery Alert", "Goods shipped but not invoiced.", types.SevHigh},
		{"Unbilled Deliveries Report", "", types.SevHigh},
		{"Process Bottleneck Detected", "Critical process is stuck.", types.SevHigh},
		{"Stuck Purchase Orders", "", types.SevHigh},
		{"Blocked Sales Orders", "", types.SevHigh},
		{"Negative Profit Deals", "Deals with negative profit detected.", types.SevHigh},
		{"Exceptional Posting Alert", "", types.SevHigh},
		{"Overdue Purchase Orders", "", types.SevHigh},
		{"Payment Terms Mismatch", "", types.SevMedium},
		{"Approval Delay Warning", "", types.SevMedium},
		{"PO Waiting for Approval", "", types.SevMedium},
		{"Pricing Issue Detected", "", types.SevMedium},
		{"Delivery Delay Alert", "", types.SevMedium},
		{"Credit Limit Changed", "", types.SevLow},
	}
	r := Default()
	for _, tt := range tests {
		t.Run(tt.alert, func(t *testing.T) {
			sev, reason := r.Resolve(tt.alert, types.BusinessControl, tt.explanation, "")
			assert.Equal(t, tt.want, sev, reason)
		})
	}

	_, reason := r.Resolve("Unbilled Delivery Alert", types.BusinessControl, "", "")
	assert.Contains(t, strings.ToLower(reason), "unbilled")

	sev, reason := r.Resolve("Unknown Alert Type XYZ", types.BusinessControl, "", "")
	assert.Equal(t, types.SevMedium, sev)
	lower := strings.ToLower(reason)
	assert.True(t, strings.Contains(lower, "default") || strings.Contains(lower, "business control"), reason)
}

func TestResolve_IndicatorsAndDefaults(t *testing.T) {
	r := Default()

	sev, reason := r.Resolve("Suspected fraud in payroll", types.AccessGovernance, "", "")
	assert.Equal(t, types.SevHigh, sev)
	assert.Equal(t, "Fraud indicator detected", reason)

	sev, _ = r.Resolve("Job log", types.JobsControl, "", "sap_all assigned by job")
	assert.Equal(t, types.SevCritical, sev, "indicators also read the code summary")

	tests := []struct {
		area types.FocusArea
		want types.Severity
	}{
		{types.BusinessProtection, types.SevHigh},
		{types.AccessGovernance, types.SevMedium},
		{types.BusinessControl, types.SevMedium},
		{types.TechnicalControl, types.SevMedium},
		{types.JobsControl, types.SevLow},
		{types.S4HANAExcellence, types.SevMedium},
	}
	for _, tt := range tests {
		t.Run(string(tt.area), func(t *testing.T) {
			sev, reason := r.Resolve("Unknown Alert", tt.area, "", "")
			assert.Equal(t, tt.want, sev)
			assert.Contains(t, reason, "Default")
		})
	}
}

func TestBaseScore(t *testing.T) {
	assert.Equal(t, 90, BaseScore(types.SevCritical))
	assert.Equal(t, 75, BaseScore(types.SevHigh))
	assert.Equal(t, 60, BaseScore(types.SevMedium))
	assert.Equal(t, 50, BaseScore(types.SevLow))
	assert.Equal(t, 60, BaseScore(""))
}
