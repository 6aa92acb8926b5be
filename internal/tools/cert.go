package tools

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"

	"edgemcp/internal/domain"
	"edgemcp/internal/infra/edgegrid"
)

const (
	cpsService  = "cps"
	cpsBasePath = "/cps/v2"
)

// Enrollment is one certificate enrollment.
type Enrollment struct {
	EnrollmentID    int      `json:"enrollmentId"`
	CommonName      string   `json:"cn"`
	Sans            []string `json:"sans,omitempty"`
	CertificateType string   `json:"certificateType,omitempty"`
	ValidationType  string   `json:"validationType,omitempty"`
	Status          string   `json:"status,omitempty"`
}

type enrollmentsResponse struct {
	Enrollments []Enrollment `json:"enrollments"`
}

// Deployment describes the certificate deployed on one network.
type Deployment struct {
	Status string `json:"status"`
	Expiry string `json:"expiry,omitempty"`
}

// DeploymentStatus reports where an enrollment's certificate is live.
type DeploymentStatus struct {
	Production *Deployment `json:"production,omitempty"`
	Staging    *Deployment `json:"staging,omitempty"`
}

func certTools(deps Deps) []domain.ToolDefinition {
	return []domain.ToolDefinition{
		{
			Name:        "cert_enrollments_list",
			Description: "List certificate enrollments.",
			InputSchema: inputSchema(nil),
			Handler:     certEnrollmentsList(deps),
			Options:     domain.ToolOptions{CacheTTL: listCacheTTL},
		},
		{
			Name:        "cert_enrollment_get",
			Description: "Fetch one certificate enrollment.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"enrollmentId": intProp("Enrollment to fetch"),
			}, "enrollmentId"),
			Handler: certEnrollmentGet(deps),
		},
		{
			Name:        "cert_deployment_status",
			Description: "Report where an enrollment's certificate is deployed.",
			InputSchema: inputSchema(map[string]*jsonschema.Schema{
				"enrollmentId": intProp("Enrollment to inspect"),
			}, "enrollmentId"),
			Handler: certDeploymentStatus(deps),
		},
	}
}

func certEnrollmentsList(deps Deps) domain.Handler {
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		var resp enrollmentsResponse
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: cpsService,
			Method:  http.MethodGet,
			Path:    cpsBasePath + "/enrollments",
		}, &resp); err != nil {
			return nil, err
		}
		return resp.Enrollments, nil
	}
}

func certEnrollmentGet(deps Deps) domain.Handler {
	type args struct {
		EnrollmentID int `json:"enrollmentId"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		var enrollment Enrollment
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: cpsService,
			Method:  http.MethodGet,
			Path:    cpsBasePath + "/enrollments/" + strconv.Itoa(in.EnrollmentID),
		}, &enrollment); err != nil {
			return nil, err
		}
		return enrollment, nil
	}
}

func certDeploymentStatus(deps Deps) domain.Handler {
	type args struct {
		EnrollmentID int `json:"enrollmentId"`
	}
	return func(ctx context.Context, req domain.HandlerRequest) (any, error) {
		in, err := decodeArgs[args](req.Args)
		if err != nil {
			return nil, err
		}
		var status DeploymentStatus
		if err := deps.Client.Do(ctx, req.Customer, edgegrid.Request{
			Service: cpsService,
			Method:  http.MethodGet,
			Path:    cpsBasePath + "/enrollments/" + strconv.Itoa(in.EnrollmentID) + "/deployments",
		}, &status); err != nil {
			return nil, err
		}
		return status, nil
	}
}
