package domain

import (
	"time"

	"github.com/google/uuid"

	sharedDomain "github.com/fakturly/fakturly/internal/shared/domain"
)

// MaxHeaderTitleHistory bounds how many previous header titles are kept.
const MaxHeaderTitleHistory = 10

// Settings holds a user's invoice presentation preferences. Each user has
// exactly one settings row, created lazily on first access.
type Settings struct {
	sharedDomain.BaseAggregateRoot
	userID               uuid.UUID
	invoiceHeaderTitle   string
	previousHeaderTitles []string
	logoURL              string
	businessAddress      string
	businessPhone        string
}

// NewSettings creates default settings for a user.
func NewSettings(userID uuid.UUID) *Settings {
	return &Settings{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		userID:            userID,
	}
}

// RehydrateSettings reconstructs settings from storage.
func RehydrateSettings(
	id, userID uuid.UUID,
	invoiceHeaderTitle string,
	previousHeaderTitles []string,
	logoURL, businessAddress, businessPhone string,
	createdAt, updatedAt time.Time,
) *Settings {
	return &Settings{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(
			sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		),
		userID:               userID,
		invoiceHeaderTitle:   invoiceHeaderTitle,
		previousHeaderTitles: previousHeaderTitles,
		logoURL:              logoURL,
		businessAddress:      businessAddress,
		businessPhone:        businessPhone,
	}
}

func (s *Settings) UserID() uuid.UUID          { return s.userID }
func (s *Settings) InvoiceHeaderTitle() string { return s.invoiceHeaderTitle }
func (s *Settings) LogoURL() string            { return s.logoURL }
func (s *Settings) BusinessAddress() string    { return s.businessAddress }
func (s *Settings) BusinessPhone() string      { return s.businessPhone }

// PreviousHeaderTitles returns a copy of the header title history, most
// recent first.
func (s *Settings) PreviousHeaderTitles() []string {
	titles := make([]string, len(s.previousHeaderTitles))
	copy(titles, s.previousHeaderTitles)
	return titles
}

// SetInvoiceHeaderTitle changes the custom header title, pushing the old
// value onto the history. Callers authorize the edit against the user's
// plan before reaching here.
func (s *Settings) SetInvoiceHeaderTitle(title string) {
	if title == s.invoiceHeaderTitle {
		return
	}
	if s.invoiceHeaderTitle != "" {
		s.previousHeaderTitles = append([]string{s.invoiceHeaderTitle}, s.previousHeaderTitles...)
		if len(s.previousHeaderTitles) > MaxHeaderTitleHistory {
			s.previousHeaderTitles = s.previousHeaderTitles[:MaxHeaderTitleHistory]
		}
	}
	s.invoiceHeaderTitle = title
	s.Touch()
}

// UpdateBusinessInfo changes the logo and business contact details shown
// on rendered invoices.
func (s *Settings) UpdateBusinessInfo(logoURL, address, phone string) {
	s.logoURL = logoURL
	s.businessAddress = address
	s.businessPhone = phone
	s.Touch()
}
