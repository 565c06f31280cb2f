package storage

import (
	"context"
	"time"

	"github.com/odemir/clinicbook/libs/db"
)

// Settings is the single active site configuration row consumed by the
// public booking form.
type Settings struct {
	ID              string
	SiteTitle       string
	SiteDescription string
	CaptchaKey      string
	WhatsappNumber  string
	MobileAppLink   string
	UpdatedAt       time.Time
}

type SettingsRepository struct {
	pool db.Querier
}

func NewSettingsRepository(pool db.Querier) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func (r *SettingsRepository) GetActive(ctx context.Context) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, `
		SELECT id, site_title, site_description,
			COALESCE(captcha_key, ''), COALESCE(whatsapp_number, ''), COALESCE(mobile_app_link, ''),
			updated_at
		FROM settings
		WHERE is_active
		ORDER BY updated_at DESC
		LIMIT 1
	`).Scan(&s.ID, &s.SiteTitle, &s.SiteDescription, &s.CaptchaKey, &s.WhatsappNumber, &s.MobileAppLink, &s.UpdatedAt)
	if err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Upsert keeps exactly one active row; the fixed id makes repeated saves
// overwrite rather than accumulate.
func (r *SettingsRepository) Upsert(ctx context.Context, s Settings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (id, site_title, site_description, captcha_key, whatsapp_number, mobile_app_link, is_active, updated_at)
		VALUES ('default', $1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), true, now())
		ON CONFLICT (id) DO UPDATE
		SET site_title = EXCLUDED.site_title,
			site_description = EXCLUDED.site_description,
			captcha_key = EXCLUDED.captcha_key,
			whatsapp_number = EXCLUDED.whatsapp_number,
			mobile_app_link = EXCLUDED.mobile_app_link,
			is_active = true,
			updated_at = now()
	`, s.SiteTitle, s.SiteDescription, s.CaptchaKey, s.WhatsappNumber, s.MobileAppLink)
	return err
}
