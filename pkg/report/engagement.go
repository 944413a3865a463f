package report

import "time"

// Engagement supplies header and branding context to a document.
// Rendering never mutates it.
type Engagement struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    string     `json:"status,omitempty"`
	Type      string     `json:"type,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Customer  *Customer  `json:"customer,omitempty"`
}

// Customer is the client an engagement is performed for.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CustomerName returns the customer's display name, or "" when unset.
func (e *Engagement) CustomerName() string {
	if e == nil || e.Customer == nil {
		return ""
	}
	return e.Customer.Name
}

// Clone returns a deep copy of e.
func (e *Engagement) Clone() *Engagement {
	if e == nil {
		return nil
	}
	c := *e
	if e.StartDate != nil {
		t := *e.StartDate
		c.StartDate = &t
	}
	if e.EndDate != nil {
		t := *e.EndDate
		c.EndDate = &t
	}
	if e.Customer != nil {
		cu := *e.Customer
		c.Customer = &cu
	}
	return &c
}
