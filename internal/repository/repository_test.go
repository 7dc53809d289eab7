package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestSwapStatusApplied(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStoryRepository(db)

	mock.ExpectExec(`UPDATE "stories" SET .* WHERE .*id = .* AND user_id = .* AND status = `).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.SwapStatus(context.Background(), uuid.New(), uuid.New(), models.StatusDraft, models.StatusGeneratingScenes)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapStatusLostRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStoryRepository(db)

	mock.ExpectExec(`UPDATE "stories" SET .* WHERE .*id = .* AND user_id = .* AND status = `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.SwapStatus(context.Background(), uuid.New(), uuid.New(), models.StatusDraft, models.StatusGeneratingScenes)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwapStatusDBError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStoryRepository(db)

	mock.ExpectExec(`UPDATE "stories"`).WillReturnError(errors.New("connection reset"))

	_, err := repo.SwapStatus(context.Background(), uuid.New(), uuid.New(), models.StatusDraft, models.StatusGeneratingScenes)
	assert.Error(t, err)
}

func TestStoryGetOwnedNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStoryRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "stories" WHERE .*id = .* AND user_id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetOwned(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoryGetOwnedDecodesContent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStoryRepository(db)
	id, uid := uuid.New(), uuid.New()

	rows := sqlmock.NewRows([]string{"id", "user_id", "character_name", "status", "story_content", "scene_images"}).
		AddRow(id.String(), uid.String(), "Rex", "completed",
			[]byte(`{"pages":[{"page_number":1,"is_premium":false},{"page_number":3,"is_premium":true}],"total_pages":5}`),
			[]byte(`{"scenes":[],"cover_image_url":"https://cdn.example.com/cover.png"}`))
	mock.ExpectQuery(`SELECT \* FROM "stories"`).WillReturnRows(rows)

	story, err := repo.GetOwned(context.Background(), id, uid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, story.Status)
	content := story.StoryContent.Data()
	assert.Equal(t, 5, content.TotalPages)
	require.Len(t, content.Pages, 2)
	assert.True(t, content.Pages[1].IsPremium)
	assert.Equal(t, "https://cdn.example.com/cover.png", story.SceneImages.Data().CoverImageURL)
}

func TestStoryUpdateOwnedNotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewStoryRepository(db)

	mock.ExpectExec(`UPDATE "stories" SET .* WHERE .*id = .* AND user_id = `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateOwned(context.Background(), uuid.New(), uuid.New(), map[string]interface{}{"story_world": "space"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChildListByParentNewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChildRepository(db)
	parent := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "parent_id", "first_name", "age_group", "relationship"}).
		AddRow(uuid.NewString(), parent.String(), "Mia", "3-6", "parent").
		AddRow(uuid.NewString(), parent.String(), "Leo", "8-10", "parent")
	mock.ExpectQuery(`SELECT \* FROM "child_profiles" WHERE .*parent_id = .* ORDER BY created_at DESC`).
		WillReturnRows(rows)

	children, err := repo.ListByParent(context.Background(), parent)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Mia", children[0].FirstName)
}

func TestChildUpdateOwnedNotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChildRepository(db)

	mock.ExpectExec(`UPDATE "child_profiles" SET .* WHERE .*id = .* AND parent_id = `).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.UpdateOwned(context.Background(), uuid.New(), uuid.New(), map[string]interface{}{"first_name": "Mia"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertByExternalIDKeepsExistingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	existing := uuid.New()
	ext := "auth0|abc"
	email := "parent@example.com"

	mock.ExpectQuery(`INSERT INTO "users" .*ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE .*external_id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "external_id", "role", "subscription_status"}).
			AddRow(existing.String(), email, ext, "adult", "family"))

	user, err := repo.UpsertByExternalID(context.Background(), &models.User{ExternalID: &ext, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, existing, user.ID)
	assert.Equal(t, models.SubscriptionFamily, user.SubscriptionStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertByExternalIDLinksEmailRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	existing := uuid.New()
	ext := "auth0|new"
	email := "parent@example.com"

	mock.ExpectQuery(`INSERT INTO "users" .*ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE external_id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "subscription_status"}).
			AddRow(existing.String(), email, "adult", "free"))
	mock.ExpectExec(`UPDATE "users" SET .*external_id IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.UpsertByExternalID(context.Background(), &models.User{ExternalID: &ext, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, existing, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertByExternalIDEmailOwnedByOtherIdentity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	ext := "auth0|new"
	email := "parent@example.com"

	mock.ExpectQuery(`INSERT INTO "users" .*ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE external_id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "external_id", "role", "subscription_status"}).
			AddRow(uuid.New().String(), email, "auth0|old", "adult", "free"))
	mock.ExpectExec(`UPDATE "users" SET .*external_id IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	user, err := repo.UpsertByExternalID(context.Background(), &models.User{ExternalID: &ext, Email: &email})
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialDelete(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM "auth_credentials" WHERE id = `).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewCredentialRepository(db).Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertByExternalIDRequiresExternalID(t *testing.T) {
	db, _ := newMockDB(t)
	_, err := NewUserRepository(db).UpsertByExternalID(context.Background(), &models.User{})
	assert.Error(t, err)
}

func TestDowngradeExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE "users" SET .* WHERE .*subscription_status <> .* AND subscription_expires IS NOT NULL AND subscription_expires < `).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DowngradeExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSetConsentMissingUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE "users" SET .* WHERE .*id = `).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.SetConsent(context.Background(), uuid.New(), true)
	assert.ErrorIs(t, err, ErrNotFound)
}
