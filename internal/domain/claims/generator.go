package claims

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/billing/internal/domain/clients"
)

// GenerateRequest scopes a claim generation run.
type GenerateRequest struct {
	StartDate           time.Time  `json:"start_date"`
	EndDate             time.Time  `json:"end_date"`
	ClientID            *uuid.UUID `json:"client_id,omitempty"`
	CheckAuthorizations bool       `json:"check_authorizations"`
	EnforceTimelyFiling bool       `json:"enforce_timely_filing"`
}

// SessionIssue explains why a session or group was left out of a run.
type SessionIssue struct {
	SessionID   uuid.UUID `json:"session_id,omitempty"`
	ClientID    uuid.UUID `json:"client_id"`
	ServiceCode string    `json:"service_code"`
	Message     string    `json:"message"`
}

// GenerateResult is the outcome of one generation run.
type GenerateResult struct {
	Claims   []*Claim       `json:"claims"`
	Errors   []SessionIssue `json:"errors"`
	Warnings []SessionIssue `json:"warnings"`
}

// codes that may not be billed without an active authorization
var authRequiredCodes = map[string]bool{
	"W1727": true,
	"W1728": true,
	"W7235": true,
	"W7236": true,
}

type sessionGroup struct {
	clientID    uuid.UUID
	providerID  uuid.UUID
	serviceCode string
	month       string
	sessions    []*clients.ServiceSession
}

func (g *sessionGroup) key() string {
	return g.clientID.String() + "|" + g.month + "|" + g.serviceCode
}

// Generate turns completed, unbilled sessions in the date range into
// claims, one per client, calendar month, and service code. The whole
// run executes in a single transaction so a failure leaves no
// half-billed sessions behind.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.EndDate.IsZero() {
		req.EndDate = s.now()
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("end_date cannot precede start_date")
	}

	result := &GenerateResult{}
	err := s.withTx(ctx, func(ctx context.Context) error {
		sessions, err := s.sessions.ListBillable(ctx, req.EndDate)
		if err != nil {
			return fmt.Errorf("list billable sessions: %w", err)
		}

		groups := make(map[string]*sessionGroup)
		var order []string
		for _, sess := range sessions {
			if sess.SessionDate.Before(req.StartDate) {
				continue
			}
			if req.ClientID != nil && sess.ClientID != *req.ClientID {
				continue
			}
			if req.EnforceTimelyFiling {
				age := int(s.now().Sub(sess.SessionDate).Hours() / 24)
				if age > s.opts.TimelyFilingDays {
					result.Warnings = append(result.Warnings, SessionIssue{
						SessionID:   sess.ID,
						ClientID:    sess.ClientID,
						ServiceCode: sess.ServiceCode,
						Message:     fmt.Sprintf("session is %d days old, past the %d-day filing limit", age, s.opts.TimelyFilingDays),
					})
					continue
				}
			}
			g := &sessionGroup{
				clientID:    sess.ClientID,
				providerID:  sess.ProviderID,
				serviceCode: sess.ServiceCode,
				month:       sess.SessionDate.Format("2006-01"),
			}
			key := g.key()
			if existing, ok := groups[key]; ok {
				existing.sessions = append(existing.sessions, sess)
			} else {
				g.sessions = []*clients.ServiceSession{sess}
				groups[key] = g
				order = append(order, key)
			}
		}
		sort.Strings(order)

		// Continue from the highest suffix issued today so deleted
		// claims never free a number a surviving claim still holds.
		dayPrefix := s.opts.ClaimNumberPrefix + s.now().Format("060102")
		seq, err := s.repo.MaxNumberSuffix(ctx, dayPrefix)
		if err != nil {
			return fmt.Errorf("next claim sequence: %w", err)
		}

		for _, key := range order {
			g := groups[key]
			claim, issue := s.buildClaim(ctx, g, req, dayPrefix, seq+1)
			if issue != nil {
				result.Errors = append(result.Errors, *issue)
				continue
			}
			seq++

			if err := s.repo.Create(ctx, claim); err != nil {
				return fmt.Errorf("create claim %s: %w", claim.ClaimNumber, err)
			}
			ids := make([]uuid.UUID, len(g.sessions))
			for i, sess := range g.sessions {
				ids[i] = sess.ID
			}
			if err := s.sessions.MarkBilled(ctx, ids, claim.ID); err != nil {
				return fmt.Errorf("mark sessions billed: %w", err)
			}
			if err := s.recordActivity(ctx, claim.ID, "generated",
				fmt.Sprintf("generated from %d sessions", len(g.sessions))); err != nil {
				return err
			}
			result.Claims = append(result.Claims, claim)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildClaim rolls one group into a claim, consuming authorization units
// when the service code requires it. A nil claim with a non-nil issue
// means the group was skipped.
func (s *Service) buildClaim(ctx context.Context, g *sessionGroup, req GenerateRequest, dayPrefix string, seq int) (*Claim, *SessionIssue) {
	first, last := g.sessions[0].SessionDate, g.sessions[0].SessionDate
	units := 0
	total := 0.0
	for _, sess := range g.sessions {
		if sess.SessionDate.Before(first) {
			first = sess.SessionDate
		}
		if sess.SessionDate.After(last) {
			last = sess.SessionDate
		}
		units += sess.Units
		total += sess.Amount()
	}

	var authNumber *string
	if req.CheckAuthorizations && authRequiredCodes[g.serviceCode] {
		a, err := s.auths.FindActive(ctx, g.clientID, g.serviceCode, first)
		if err != nil {
			return nil, &SessionIssue{ClientID: g.clientID, ServiceCode: g.serviceCode,
				Message: fmt.Sprintf("authorization lookup failed: %v", err)}
		}
		if a == nil {
			return nil, &SessionIssue{ClientID: g.clientID, ServiceCode: g.serviceCode,
				Message: "no active authorization covers this service"}
		}
		if err := s.auths.ConsumeUnits(ctx, a.ID, units); err != nil {
			if errors.Is(err, clients.ErrInsufficientUnits) {
				return nil, &SessionIssue{ClientID: g.clientID, ServiceCode: g.serviceCode,
					Message: fmt.Sprintf("authorization %s has only %d of %d requested units remaining",
						a.AuthNumber, a.RemainingUnits(), units)}
			}
			return nil, &SessionIssue{ClientID: g.clientID, ServiceCode: g.serviceCode,
				Message: fmt.Sprintf("consume authorization units: %v", err)}
		}
		authNumber = &a.AuthNumber
	}

	rate := 0.0
	if units > 0 {
		rate = total / float64(units)
	}
	return &Claim{
		ClaimNumber:         fmt.Sprintf("%s%04d", dayPrefix, seq),
		ClientID:            g.clientID,
		ProviderID:          g.providerID,
		ServiceCode:         g.serviceCode,
		ServiceStart:        first,
		ServiceEnd:          last,
		Units:               units,
		Rate:                rate,
		TotalAmount:         total,
		AuthorizationNumber: authNumber,
		Status:              StatusPending,
	}, nil
}
