package tools

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertEnrollmentsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cps/v2/enrollments", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"enrollments":[
			{"enrollmentId":10001,"cn":"www.example.com","sans":["example.com"],
			 "certificateType":"san","validationType":"dv","status":"active"}
		]}`)
	}))
	defer srv.Close()

	out, err := callTool(t, testDeps(nil), "cert_enrollments_list", `{}`, toolsCustomer(srv))
	require.NoError(t, err)

	enrollments, ok := out.([]Enrollment)
	require.True(t, ok)
	require.Len(t, enrollments, 1)
	assert.Equal(t, 10001, enrollments[0].EnrollmentID)
	assert.Equal(t, "www.example.com", enrollments[0].CommonName)
}

func TestCertEnrollmentGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cps/v2/enrollments/10001", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"enrollmentId":10001,"cn":"www.example.com","validationType":"dv"}`)
	}))
	defer srv.Close()

	out, err := callTool(t, testDeps(nil), "cert_enrollment_get", `{"enrollmentId":10001}`, toolsCustomer(srv))
	require.NoError(t, err)

	enrollment, ok := out.(Enrollment)
	require.True(t, ok)
	assert.Equal(t, "dv", enrollment.ValidationType)
}

func TestCertDeploymentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cps/v2/enrollments/10001/deployments", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"production":{"status":"deployed","expiry":"2027-03-01T00:00:00Z"},
			"staging":{"status":"deployed"}}`)
	}))
	defer srv.Close()

	out, err := callTool(t, testDeps(nil), "cert_deployment_status", `{"enrollmentId":10001}`, toolsCustomer(srv))
	require.NoError(t, err)

	status, ok := out.(DeploymentStatus)
	require.True(t, ok)
	require.NotNil(t, status.Production)
	assert.Equal(t, "deployed", status.Production.Status)
	assert.Equal(t, "2027-03-01T00:00:00Z", status.Production.Expiry)
}
