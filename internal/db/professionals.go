package db

import (
	"database/sql"
	"errors"

	"github.com/hearthlabs/hearth/internal/models"
)

func (db *Database) InsertProfessional(name, company string) (*models.Professional, error) {
	query := `
        INSERT INTO professionals (name, company, created_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        RETURNING id, created_at`

	pro := &models.Professional{Name: name, Company: company}
	if err := db.db.QueryRow(query, name, company).Scan(&pro.ID, &pro.CreatedAt); err != nil {
		return nil, err
	}
	return pro, nil
}

func (db *Database) InsertReview(professionalID int64, author string, rating int, comment string) (*models.Review, error) {
	query := `
        INSERT INTO reviews (professional_id, author, rating, comment, created_at)
        VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
        RETURNING id, created_at`

	review := &models.Review{ProfessionalID: professionalID, Author: author, Rating: rating, Comment: comment}
	if err := db.db.QueryRow(query, professionalID, author, rating, comment).Scan(&review.ID, &review.CreatedAt); err != nil {
		return nil, err
	}
	return review, nil
}

func (db *Database) ListProfessionals() ([]models.Professional, error) {
	query := `
        SELECT id, name, company, created_at
        FROM professionals
        ORDER BY name ASC`

	rows, err := db.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	professionals := make([]models.Professional, 0)
	for rows.Next() {
		var pro models.Professional
		if err := rows.Scan(&pro.ID, &pro.Name, &pro.Company, &pro.CreatedAt); err != nil {
			return nil, err
		}
		professionals = append(professionals, pro)
	}
	return professionals, rows.Err()
}

// GetProfessional returns the professional with reviews (newest first) and
// average rating, or nil when no such professional exists.
func (db *Database) GetProfessional(id int64) (*models.Professional, error) {
	query := `
        SELECT id, name, company, created_at
        FROM professionals
        WHERE id = ?`

	var pro models.Professional
	err := db.db.QueryRow(query, id).Scan(&pro.ID, &pro.Name, &pro.Company, &pro.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	reviews, err := db.getReviews(pro.ID)
	if err != nil {
		return nil, err
	}
	pro.Reviews = reviews
	if len(reviews) > 0 {
		total := 0
		for _, r := range reviews {
			total += r.Rating
		}
		pro.AverageRating = float64(total) / float64(len(reviews))
	}
	return &pro, nil
}

func (db *Database) getReviews(professionalID int64) ([]models.Review, error) {
	query := `
        SELECT id, professional_id, author, rating, comment, created_at
        FROM reviews
        WHERE professional_id = ?
        ORDER BY created_at DESC, id DESC`

	rows, err := db.db.Query(query, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(&review.ID, &review.ProfessionalID, &review.Author, &review.Rating, &review.Comment, &review.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}
