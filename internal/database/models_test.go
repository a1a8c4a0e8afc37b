package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestBeforeCreate_AssignsIDsAndDefaultStatus(t *testing.T) {
	db := openTestDB(t)

	user := User{Email: "a@example.com"}
	require.NoError(t, db.Create(&user).Error)
	assert.NotEqual(t, uuid.Nil, user.ID)

	app := JobApplication{UserID: user.ID, Title: "Engineer", CompanyName: "Acme"}
	require.NoError(t, db.Create(&app).Error)
	assert.NotEqual(t, uuid.Nil, app.ID)
	assert.Equal(t, DefaultApplicationStatus, app.Status)
	assert.Nil(t, app.ResumeUsed)
}

func TestUserEmailIsUnique(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Create(&User{Email: "dup@example.com"}).Error)
	assert.Error(t, db.Create(&User{Email: "dup@example.com"}).Error)
}
