package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// assignID fills a zero primary key before insert so rows get an id on every
// dialect, not only where the column default generates one.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error         { assignID(&u.ID); return nil }
func (v *Vehicle) BeforeCreate(*gorm.DB) error      { assignID(&v.ID); return nil }
func (r *Reservation) BeforeCreate(*gorm.DB) error  { assignID(&r.ID); return nil }
func (p *Payment) BeforeCreate(*gorm.DB) error      { assignID(&p.ID); return nil }
func (r *Refund) BeforeCreate(*gorm.DB) error       { assignID(&r.ID); return nil }
func (n *Notification) BeforeCreate(*gorm.DB) error { assignID(&n.ID); return nil }
func (f *Favorite) BeforeCreate(*gorm.DB) error     { assignID(&f.ID); return nil }
func (b *Bookmark) BeforeCreate(*gorm.DB) error     { assignID(&b.ID); return nil }
func (t *Testimonial) BeforeCreate(*gorm.DB) error  { assignID(&t.ID); return nil }
func (o *OpeningHour) BeforeCreate(*gorm.DB) error  { assignID(&o.ID); return nil }
