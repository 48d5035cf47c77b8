package auth

import (
	"embed"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed views/emails
var emailTemplatesFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// GetEmailTemplatesFS returns the email templates rooted at views/
func GetEmailTemplatesFS() fs.FS {
	sub, err := fs.Sub(emailTemplatesFS, "views")
	if err != nil {
		panic(err)
	}
	return sub
}
