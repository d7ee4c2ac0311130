package consent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"atrium/internal/site"
	id "atrium/pkg/domain"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store   *MemoryStore
	service *Service
	site    *site.Site
}

func (s *ServiceSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.service = NewService(s.store)
	s.site = &site.Site{
		Key:            "amore",
		PrimaryHost:    "amore.example",
		ConsentVersion: "2026-01",
	}
}

func (s *ServiceSuite) TestStatusUndecided() {
	status, err := s.service.Status(context.Background(), s.site, "visitor:v1")
	s.Require().NoError(err)

	s.True(status.Pending)
	s.Equal("2026-01", status.PolicyVersion)
	s.True(status.Decisions[CategoryNecessary])
	s.False(status.Decisions[CategoryAnalytics])
	s.False(status.Decisions[CategoryMarketing])
}

func (s *ServiceSuite) TestDecideThenStatus() {
	ctx := context.Background()
	err := s.service.Decide(ctx, s.site, "visitor:v1", map[Category]bool{
		CategoryAnalytics: true,
		CategoryMarketing: false,
	})
	s.Require().NoError(err)

	status, err := s.service.Status(ctx, s.site, "visitor:v1")
	s.Require().NoError(err)
	s.False(status.Pending)
	s.True(status.Decisions[CategoryAnalytics])
	s.False(status.Decisions[CategoryMarketing])
}

func (s *ServiceSuite) TestPartialDecisionStaysPending() {
	ctx := context.Background()
	err := s.service.Decide(ctx, s.site, "visitor:v1", map[Category]bool{
		CategoryAnalytics: true,
	})
	s.Require().NoError(err)

	status, err := s.service.Status(ctx, s.site, "visitor:v1")
	s.Require().NoError(err)
	s.True(status.Pending, "marketing is still undecided")
	s.True(status.Decisions[CategoryAnalytics])
}

func (s *ServiceSuite) TestPolicyBumpReopensBanner() {
	ctx := context.Background()
	err := s.service.Decide(ctx, s.site, "visitor:v1", map[Category]bool{
		CategoryAnalytics: true,
		CategoryMarketing: true,
	})
	s.Require().NoError(err)

	s.site.ConsentVersion = "2026-02"
	status, err := s.service.Status(ctx, s.site, "visitor:v1")
	s.Require().NoError(err)
	s.True(status.Pending)
	s.False(status.Decisions[CategoryAnalytics], "stale grants do not carry over")
}

func (s *ServiceSuite) TestDecideRejectsUnknownCategory() {
	err := s.service.Decide(context.Background(), s.site, "visitor:v1", map[Category]bool{
		"tracking": true,
	})
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestDecideRejectsRefusingNecessary() {
	err := s.service.Decide(context.Background(), s.site, "visitor:v1", map[Category]bool{
		CategoryNecessary: false,
	})
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestDecideRequiresSubject() {
	err := s.service.Decide(context.Background(), s.site, "", map[Category]bool{
		CategoryAnalytics: true,
	})
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestRevokeForgetsDecisions() {
	ctx := context.Background()
	err := s.service.Decide(ctx, s.site, "visitor:v1", map[Category]bool{
		CategoryAnalytics: true,
		CategoryMarketing: true,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.service.Revoke(ctx, s.site, "visitor:v1"))

	status, err := s.service.Status(ctx, s.site, "visitor:v1")
	s.Require().NoError(err)
	s.True(status.Pending)
}

func (s *ServiceSuite) TestDecisionsIsolatedPerSite() {
	ctx := context.Background()
	err := s.service.Decide(ctx, s.site, "visitor:v1", map[Category]bool{
		CategoryAnalytics: true,
		CategoryMarketing: true,
	})
	s.Require().NoError(err)

	other := &site.Site{Key: "bizlink", PrimaryHost: "bizlink.example", ConsentVersion: "2026-01"}
	status, err := s.service.Status(ctx, other, "visitor:v1")
	s.Require().NoError(err)
	s.True(status.Pending)
}

func (s *ServiceSuite) TestGranted() {
	ctx := context.Background()
	err := s.service.Decide(ctx, s.site, "visitor:v1", map[Category]bool{
		CategoryAnalytics: true,
		CategoryMarketing: false,
	})
	s.Require().NoError(err)

	for category, want := range map[Category]bool{
		CategoryNecessary: true,
		CategoryAnalytics: true,
		CategoryMarketing: false,
	} {
		granted, err := s.service.Granted(ctx, s.site, "visitor:v1", category)
		s.Require().NoError(err)
		s.Equal(want, granted, "category %s", category)
	}
}

func (s *ServiceSuite) TestSubjectPrefersUser() {
	userID := id.NewUserID()
	visitorID := id.NewVisitorID()

	ctx := requestcontext.WithVisitorID(context.Background(), visitorID)
	s.Equal("visitor:"+visitorID.String(), Subject(ctx))

	ctx = requestcontext.WithUserID(ctx, userID)
	s.Equal("user:"+userID.String(), Subject(ctx))

	s.Empty(Subject(context.Background()))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
