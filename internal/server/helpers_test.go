package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"hongdating/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB creates a GORM *gorm.DB backed by sqlmock for unit tests.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	return gormDB, mock
}

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"userId", "user ID"},
		{"commentId", "comment ID"},
		{"roomId", "room ID"},
		{"reportTargetId", "report target ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

func TestParsePagination(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", 25, 0},
		{"?limit=10&offset=30", 10, 30},
		{"?limit=0", 25, 0},
		{"?limit=-4&offset=-1", 25, 0},
		{"?limit=500", maxPaginationLimit, 0},
		{"?limit=abc", 25, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			var body map[string]int
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.limit, body["limit"])
			assert.Equal(t, tt.offset, body["offset"])
		})
	}
}

func TestIsAdminByUserID(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT "is_admin" FROM "users"`)

	t.Run("admin", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		s := &Server{db: gormDB}
		mock.ExpectQuery(query).WithArgs(1, 1).
			WillReturnRows(sqlmock.NewRows([]string{"is_admin"}).AddRow(true))

		admin, err := s.isAdminByUserID(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, admin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("member", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		s := &Server{db: gormDB}
		mock.ExpectQuery(query).WithArgs(2, 1).
			WillReturnRows(sqlmock.NewRows([]string{"is_admin"}).AddRow(false))

		admin, err := s.isAdminByUserID(context.Background(), 2)
		require.NoError(t, err)
		assert.False(t, admin)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		s := &Server{db: gormDB}
		mock.ExpectQuery(query).WithArgs(999, 1).
			WillReturnRows(sqlmock.NewRows([]string{"is_admin"}))

		_, err := s.isAdminByUserID(context.Background(), 999)
		assert.True(t, models.IsCode(err, models.CodeUnauthorized))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		gormDB, mock := setupMockDB(t)
		s := &Server{db: gormDB}
		mock.ExpectQuery(query).WithArgs(3, 1).WillReturnError(errors.New("connection reset"))

		_, err := s.isAdminByUserID(context.Background(), 3)
		assert.True(t, models.IsCode(err, models.CodeInternal))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminRequired_DatabaseErrorIs500(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	s := &Server{db: gormDB}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "is_admin" FROM "users"`)).
		WillReturnError(errors.New("connection reset"))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", uint(7))
		return c.Next()
	})
	app.Get("/admin", s.AdminRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeInternal, body.Code)
	assert.Empty(t, body.Details)
	assert.NoError(t, mock.ExpectationsWereMet())
}
