package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/anonchat/internal/db"
	"github.com/oggyb/anonchat/internal/matchmaking"
	"github.com/oggyb/anonchat/internal/utils/pagination"
)

// ProfileRepository is the relational matchmaking.Store.
// It keeps users, their filters and live pairings in three tables.
type ProfileRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database, now: time.Now}
}

var _ matchmaking.Store = (*ProfileRepository)(nil)

// GetUser loads a user with its filter.
//
// Behavior:
//   - First reference inserts an idle user with empty profile and the default filter.
//   - Existing rows are never overwritten (ON CONFLICT DO NOTHING).
//
// Example:
//
//	repo.GetUser(ctx, 42) // -> idle user 42 with filter any/18-35/any
func (r *ProfileRepository) GetUser(ctx context.Context, id int64) (matchmaking.User, error) {
	var row db.User
	err := r.db.WithContext(ctx).Preload("Filter").First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.createDefault(ctx, id); err != nil {
			return matchmaking.User{}, err
		}
		err = r.db.WithContext(ctx).Preload("Filter").First(&row, "id = ?", id).Error
	}
	if err != nil {
		return matchmaking.User{}, err
	}
	return toUser(row), nil
}

func (r *ProfileRepository) createDefault(ctx context.Context, id int64) error {
	def := matchmaking.DefaultFilter()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := db.User{ID: id, Status: string(matchmaking.StatusIdle)}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		filter := db.Filter{
			UserID:          id,
			PreferredGender: def.Gender,
			MinAge:          def.MinAge,
			MaxAge:          def.MaxAge,
			City:            def.City,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&filter).Error; err != nil {
			return fmt.Errorf("create filter: %w", err)
		}
		return nil
	})
}

// UpdateProfile overwrites the four profile fields of an existing user.
func (r *ProfileRepository) UpdateProfile(ctx context.Context, id int64, p matchmaking.Profile) error {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":   p.Name,
			"age":    p.Age,
			"gender": p.Gender,
			"city":   p.City,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateFilter applies a partial update inside a transaction.
//
// Behavior:
//   - Only the non-nil fields of u are written.
//   - An update leaving min_age > max_age is rejected with a ValidationError
//     and nothing is written.
func (r *ProfileRepository) UpdateFilter(ctx context.Context, id int64, u matchmaking.FilterUpdate) (matchmaking.Filter, error) {
	var out matchmaking.Filter
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row db.Filter
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "user_id = ?", id).Error; err != nil {
			return err
		}

		next, err := toFilter(row).Apply(u)
		if err != nil {
			return err
		}

		if err := tx.Model(&db.Filter{}).
			Where("user_id = ?", id).
			Updates(map[string]interface{}{
				"preferred_gender": next.Gender,
				"min_age":          next.MinAge,
				"max_age":          next.MaxAge,
				"city":             next.City,
			}).Error; err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// SetStatus writes a user's status. Entering searching stamps searching_since,
// which fixes the user's place in the scan order.
func (r *ProfileRepository) SetStatus(ctx context.Context, id int64, status matchmaking.Status) error {
	since := int64(0)
	if status == matchmaking.StatusSearching {
		since = r.now().UnixMilli()
	}
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          string(status),
			"searching_since": since,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListSearching returns searching users other than exclude.
//
// Behavior:
//   - Ordered by searching_since ASC, id ASC (longest waiting first).
//   - Supports cursor-based pagination via pageToken.
//
// Example:
//
//	repo.ListSearching(ctx, 42, "", 50) // first 50 searching users except 42
func (r *ProfileRepository) ListSearching(ctx context.Context, exclude int64, pageToken string, limit int) ([]matchmaking.User, string, error) {
	cursor, err := pagination.Decode(pageToken)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Preload("Filter").
		Where("status = ? AND id <> ?", string(matchmaking.StatusSearching), exclude).
		Order("searching_since ASC, id ASC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		query = query.Where(
			"(searching_since > ? OR (searching_since = ? AND id > ?))",
			cursor.SinceUnix, cursor.SinceUnix, cursor.UserID,
		)
	}

	var rows []db.User
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	var next string
	if len(rows) > limit {
		last := rows[limit-1]
		next, _ = pagination.Encode(pagination.Cursor{UserID: last.ID, SinceUnix: last.SearchingSince})
		rows = rows[:limit]
	}

	users := make([]matchmaking.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, toUser(row))
	}
	return users, next, nil
}

// CreatePairing flips both users from searching to chatting and inserts both
// pairing rows in one transaction.
//
// Behavior:
//   - The conditional status update must touch exactly two rows, otherwise
//     the transaction rolls back with ErrNotEligible.
//   - A user already present in pairings violates the primary key and rolls back.
func (r *ProfileRepository) CreatePairing(ctx context.Context, a, b int64) (matchmaking.Pairing, error) {
	if a == b {
		return matchmaking.Pairing{}, matchmaking.ErrSelfClaim
	}

	p := matchmaking.Pairing{
		ID:        uuid.NewString(),
		UserA:     a,
		UserB:     b,
		CreatedAt: r.now().UTC().Truncate(time.Millisecond),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.User{}).
			Where("id IN ? AND status = ?", []int64{a, b}, string(matchmaking.StatusSearching)).
			Updates(map[string]interface{}{
				"status":          string(matchmaking.StatusChatting),
				"searching_since": 0,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 2 {
			return matchmaking.ErrNotEligible
		}

		rows := []db.Pairing{
			{UserID: a, CompanionID: b, PairingID: p.ID, CreatedAt: p.CreatedAt},
			{UserID: b, CompanionID: a, PairingID: p.ID, CreatedAt: p.CreatedAt},
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return matchmaking.Pairing{}, err
	}
	return p, nil
}

// Companion returns the user id's chat partner, if any.
func (r *ProfileRepository) Companion(ctx context.Context, id int64) (int64, bool, error) {
	var row db.Pairing
	err := r.db.WithContext(ctx).First(&row, "user_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.CompanionID, true, nil
}

// DestroyPairing removes both rows of id's pairing and sets both users idle.
// Calling it for a user without a pairing is a no-op.
func (r *ProfileRepository) DestroyPairing(ctx context.Context, id int64) (matchmaking.Pairing, bool, error) {
	var (
		p     matchmaking.Pairing
		found bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row db.Pairing
		err := tx.First(&row, "user_id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Where("pairing_id = ?", row.PairingID).Delete(&db.Pairing{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&db.User{}).
			Where("id IN ?", []int64{row.UserID, row.CompanionID}).
			Updates(map[string]interface{}{
				"status":          string(matchmaking.StatusIdle),
				"searching_since": 0,
			}).Error; err != nil {
			return err
		}

		p = matchmaking.Pairing{ID: row.PairingID, UserA: row.UserID, UserB: row.CompanionID, CreatedAt: row.CreatedAt}
		found = true
		return nil
	})
	if err != nil {
		return matchmaking.Pairing{}, false, err
	}
	return p, found, nil
}

// Stats counts searching users and live pairings.
func (r *ProfileRepository) Stats(ctx context.Context) (matchmaking.Stats, error) {
	var s matchmaking.Stats
	if err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("status = ?", string(matchmaking.StatusSearching)).
		Count(&s.Searching).Error; err != nil {
		return matchmaking.Stats{}, err
	}

	var rows int64
	if err := r.db.WithContext(ctx).Model(&db.Pairing{}).Count(&rows).Error; err != nil {
		return matchmaking.Stats{}, err
	}
	s.Pairings = rows / 2
	return s, nil
}

func toUser(row db.User) matchmaking.User {
	u := matchmaking.User{
		ID: row.ID,
		Profile: matchmaking.Profile{
			Name:   row.Name,
			Age:    row.Age,
			Gender: row.Gender,
			City:   row.City,
		},
		Filter: toFilter(row.Filter),
		Status: matchmaking.Status(row.Status),
	}
	if row.SearchingSince > 0 {
		u.SearchingSince = time.UnixMilli(row.SearchingSince)
	}
	return u
}

func toFilter(row db.Filter) matchmaking.Filter {
	return matchmaking.Filter{
		Gender: row.PreferredGender,
		MinAge: row.MinAge,
		MaxAge: row.MaxAge,
		City:   row.City,
	}
}
