package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"palmera_listings/internal/domain"
)

// DefaultChannelID is used when the submitted origin-channel name matches
// nothing in the CRM's registry. The registry is user-configurable, so
// unmatched names are expected, not exceptional.
const DefaultChannelID int64 = 11

// labelColors keys a new label's color to its semantic role.
var labelColors = map[string]string{
	"cliente":     "#27ae60",
	"propietario": "#2980b9",
	"comprador":   "#8e44ad",
}

const defaultLabelColor = "#7f8c8d"

func colorForLabel(name string) string {
	if c, ok := labelColors[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c
	}
	return defaultLabelColor
}

// LeadService turns form submissions into CRM contacts, optionally tagged
// with a label. Write path only; it never touches the cache.
type LeadService struct {
	crm domain.CRMClient
	now func() time.Time
}

func NewLeadService(crm domain.CRMClient) *LeadService {
	return &LeadService{crm: crm, now: time.Now}
}

// Submit creates a CRM contact for the form and returns its id. Contact
// creation failing is fatal to the submission; channel or label trouble is
// not. Duplicate submissions intentionally create duplicate contacts: each
// submission is a fresh lead event, and dedup belongs to the CRM.
func (s *LeadService) Submit(ctx context.Context, form domain.LeadForm, channelName, labelName string) (int64, error) {
	first, last := splitName(form.Name)
	lead := domain.Lead{
		FirstName: first,
		LastName:  last,
		Email:     strings.TrimSpace(form.Email),
		Phone:     strings.TrimSpace(form.Phone),
		Comment:   s.buildComment(form),
		ChannelID: s.resolveChannel(ctx, channelName),
		LabelName: labelName,
	}

	contactID, err := s.crm.CreateContact(ctx, lead)
	if err != nil {
		return 0, fmt.Errorf("create contact: %w", err)
	}
	log.Info().Int64("contact", contactID).Str("channel", channelName).Msg("lead contact created")

	if labelName != "" {
		if err := s.tagContact(ctx, contactID, labelName); err != nil {
			// the contact exists and the lead is captured; a missing
			// tag is an operator inconvenience, not a lost lead
			log.Warn().Int64("contact", contactID).Str("label", labelName).Err(err).
				Msg("label assignment failed")
		}
	}
	return contactID, nil
}

// resolveChannel looks the origin-channel name up in the CRM registry,
// case-insensitively, falling back to the fixed default.
func (s *LeadService) resolveChannel(ctx context.Context, name string) int64 {
	if name == "" {
		return DefaultChannelID
	}
	channels, err := s.crm.ListChannels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("channel list unavailable, using default channel")
		return DefaultChannelID
	}
	for _, ch := range channels {
		if strings.EqualFold(ch.Name, name) {
			return ch.ID
		}
	}
	return DefaultChannelID
}

// buildComment assembles the canonical comment from every present form
// field, in fixed order, terminated with the capture-source marker.
func (s *LeadService) buildComment(form domain.LeadForm) string {
	var b strings.Builder
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}
	add("Mensaje", form.Message)
	add("Propiedad", form.Property)
	add("Presupuesto", form.Budget)
	add("Fecha de llegada", form.MoveIn)
	fmt.Fprintf(&b, "-- web form %s @ %s", uuid.NewString(), s.now().UTC().Format(time.RFC3339))
	return b.String()
}

// tagContact resolves labelName to an id, creating the label on first use,
// then associates it to the contact. Both tag namespaces are searched before
// creating: tags surfaced on existing contacts, then the label registry.
func (s *LeadService) tagContact(ctx context.Context, contactID int64, labelName string) error {
	label, err := s.resolveLabel(ctx, labelName)
	if err != nil {
		return err
	}
	return s.crm.AssignLabel(ctx, contactID, label.ID)
}

func (s *LeadService) resolveLabel(ctx context.Context, name string) (domain.Label, error) {
	if l, err := s.crm.FindContactTag(ctx, name); err != nil {
		log.Debug().Str("label", name).Err(err).Msg("contact tag search failed")
	} else if l != nil {
		return *l, nil
	}

	if labels, err := s.crm.ListLabels(ctx); err != nil {
		log.Debug().Str("label", name).Err(err).Msg("label registry search failed")
	} else {
		for _, l := range labels {
			if strings.EqualFold(l.Name, name) {
				return l, nil
			}
		}
	}

	l, err := s.crm.CreateLabel(ctx, name, colorForLabel(name))
	if err != nil {
		return domain.Label{}, fmt.Errorf("create label %q: %w", name, err)
	}
	return l, nil
}

// splitName splits a submitted full name into given/family best-effort: the
// first word is the given name, the remainder the family name.
func splitName(full string) (first, last string) {
	fields := strings.Fields(strings.TrimSpace(full))
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
