package authz_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/auth"
	"github.com/perimetrix/fieldclinic/authz"
)

var clinician = map[string]interface{}{
	"id":    "6502b9e5c4b9b2a1f0a1b2c3",
	"email": "clinician@example.com",
}

var anonymous = map[string]interface{}{
	"id":    "",
	"email": "",
}

var _ = Describe("Request Authorizer", func() {
	var authorizer authz.RequestAuthorizer

	BeforeEach(func() {
		var err error
		authorizer, err = authz.NewRequestAuthorizer(zap.NewNop().Sugar())
		Expect(err).ToNot(HaveOccurred())
	})

	evaluate := func(method string, path []string, subject map[string]interface{}) error {
		return authorizer.EvaluatePolicy(context.Background(), map[string]interface{}{
			"path":    path,
			"method":  method,
			"subject": subject,
		})
	}

	Describe("Evaluate policy", func() {
		It("allows anyone to check readiness", func() {
			Expect(evaluate("GET", []string{"ready"}, anonymous)).To(Succeed())
		})

		It("allows anyone to sign up and sign in", func() {
			Expect(evaluate("POST", []string{"auth", "signup"}, anonymous)).To(Succeed())
			Expect(evaluate("POST", []string{"auth", "signin"}, anonymous)).To(Succeed())
		})

		It("prevents anonymous users from signing out", func() {
			Expect(evaluate("POST", []string{"auth", "signout"}, anonymous)).To(Equal(authz.ErrUnauthorized))
		})

		It("prevents anonymous users from listing patients", func() {
			Expect(evaluate("GET", []string{"v1", "patients"}, anonymous)).To(Equal(authz.ErrUnauthorized))
		})

		It("allows clinicians to manage patients", func() {
			Expect(evaluate("GET", []string{"v1", "patients"}, clinician)).To(Succeed())
			Expect(evaluate("POST", []string{"v1", "patients"}, clinician)).To(Succeed())
			Expect(evaluate("PATCH", []string{"v1", "patients", "6502b9e5c4b9b2a1f0a1b2c4"}, clinician)).To(Succeed())
			Expect(evaluate("DELETE", []string{"v1", "patients", "6502b9e5c4b9b2a1f0a1b2c4"}, clinician)).To(Succeed())
		})

		It("allows clinicians to drive a test run", func() {
			Expect(evaluate("PUT", []string{"v1", "run", "setup"}, clinician)).To(Succeed())
			Expect(evaluate("POST", []string{"v1", "run", "start"}, clinician)).To(Succeed())
		})

		It("allows clinicians to reload their workspace", func() {
			Expect(evaluate("POST", []string{"v1", "workspace", "reload"}, clinician)).To(Succeed())
		})

		It("prevents writes to the dashboard", func() {
			Expect(evaluate("GET", []string{"v1", "dashboard"}, clinician)).To(Succeed())
			Expect(evaluate("POST", []string{"v1", "dashboard"}, clinician)).To(Equal(authz.ErrUnauthorized))
		})

		It("prevents access to unknown resources", func() {
			Expect(evaluate("GET", []string{"v1", "clinics"}, clinician)).To(Equal(authz.ErrUnauthorized))
		})
	})

	Describe("Policy input", func() {
		It("includes the authenticated subject", func() {
			req := httptest.NewRequest(http.MethodGet, "/v1/patients/", nil)
			req = req.WithContext(auth.WithAuthData(req.Context(), &auth.Auth{
				SubjectId: "user-1",
				Email:     "clinician@example.com",
			}))

			input := authz.NewPolicyInput(req)
			Expect(input["path"]).To(Equal([]string{"v1", "patients"}))
			Expect(input["method"]).To(Equal("GET"))
			Expect(input["subject"]).To(HaveKeyWithValue("id", "user-1"))
		})
	})
})
