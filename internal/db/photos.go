package db

import (
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/hearthlabs/hearth/internal/models"
)

// InsertPhoto stores a photo together with its attributes in one transaction.
func (db *Database) InsertPhoto(professionalID int64, title, description, imageURL string, attributes []models.PhotoAttribute) (*models.Photo, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	photo := &models.Photo{
		ProfessionalID: professionalID,
		Title:          title,
		Description:    description,
		ImageURL:       imageURL,
		Attributes:     attributes,
	}
	query := `
        INSERT INTO photos (professional_id, title, description, image_url, created_at)
        VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
        RETURNING id, created_at`
	if err := tx.QueryRow(query, professionalID, title, description, imageURL).Scan(&photo.ID, &photo.CreatedAt); err != nil {
		return nil, err
	}

	for _, attr := range attributes {
		if _, err := tx.Exec("INSERT INTO photo_attributes (photo_id, name, value) VALUES (?, ?, ?)", photo.ID, attr.Name, attr.Value); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return photo, nil
}

// ListPhotos returns photos matching every attribute filter. Each filter pair
// contributes an EXISTS subquery; only the clause shape is dynamic, every
// name and value stays a bound parameter.
func (db *Database) ListPhotos(filters map[string]string) ([]models.Photo, error) {
	var sb strings.Builder
	sb.WriteString(`
        SELECT p.id, p.professional_id, p.title, p.description, p.image_url, p.created_at
        FROM photos p
        WHERE 1=1`)

	names := make([]string, 0, len(filters))
	for name := range filters {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]interface{}, 0, 2*len(names))
	for _, name := range names {
		sb.WriteString(`
        AND EXISTS (SELECT 1 FROM photo_attributes pa WHERE pa.photo_id = p.id AND pa.name = ? AND pa.value = ?)`)
		args = append(args, name, filters[name])
	}
	sb.WriteString(`
        ORDER BY p.created_at DESC, p.id DESC`)

	rows, err := db.db.Query(sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := make([]models.Photo, 0)
	for rows.Next() {
		var photo models.Photo
		if err := rows.Scan(&photo.ID, &photo.ProfessionalID, &photo.Title, &photo.Description, &photo.ImageURL, &photo.CreatedAt); err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, rows.Err()
}

// GetPhoto returns the photo with its attributes and owning professional, or
// nil when no such photo exists.
func (db *Database) GetPhoto(id int64) (*models.Photo, error) {
	query := `
        SELECT id, professional_id, title, description, image_url, created_at
        FROM photos
        WHERE id = ?`

	var photo models.Photo
	err := db.db.QueryRow(query, id).Scan(&photo.ID, &photo.ProfessionalID, &photo.Title, &photo.Description, &photo.ImageURL, &photo.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	attributes, err := db.getPhotoAttributes(photo.ID)
	if err != nil {
		return nil, err
	}
	photo.Attributes = attributes

	pro, err := db.GetProfessional(photo.ProfessionalID)
	if err != nil {
		return nil, err
	}
	photo.Professional = pro
	return &photo, nil
}

func (db *Database) getPhotoAttributes(photoID int64) ([]models.PhotoAttribute, error) {
	rows, err := db.db.Query("SELECT name, value FROM photo_attributes WHERE photo_id = ? ORDER BY name ASC", photoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attributes := make([]models.PhotoAttribute, 0)
	for rows.Next() {
		var attr models.PhotoAttribute
		if err := rows.Scan(&attr.Name, &attr.Value); err != nil {
			return nil, err
		}
		attributes = append(attributes, attr)
	}
	return attributes, rows.Err()
}
