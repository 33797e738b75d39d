package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow("Sheet1", cellRef, &values))
	}

	path := filepath.Join(t.TempDir(), "credentials.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoader_Workbook(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Profile ID", "Name", "Email", "Password", "2FA Secret"},
		{"p1", "Shop One", "one@example.com", "pw1", "JBSWY3DPEHPK3PXP"},
		{"p2", "Shop Two", "", "pw2", ""},
	})

	creds, err := NewLoader(arbor.NewLogger().WithWriters([]writers.IWriter{})).LoadFile(path)
	require.NoError(t, err)
	require.Len(t, creds, 1)

	assert.Equal(t, "p1", creds[0].ProfileID)
	assert.Equal(t, "Shop One", creds[0].ProfileName)
	assert.Equal(t, "one@example.com", creds[0].Email)
	assert.Equal(t, "pw1", creds[0].Password)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", creds[0].TOTPSecret)
}

func TestLoader_WorkbookIntoStore(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"id", "name", "username", "pwd"},
		{"p1", "Shop One", "one@example.com", "pw1"},
		{"", "Broken", "x@example.com", "pw"},
	})

	creds, err := NewLoader(arbor.NewLogger().WithWriters([]writers.IWriter{})).LoadFile(path)
	require.NoError(t, err)

	store := NewStore(arbor.NewLogger().WithWriters([]writers.IWriter{}))
	assert.Equal(t, 1, store.ReplaceAll(creds))
	assert.NotNil(t, store.GetByName("SHOP ONE"))
	assert.Nil(t, store.GetByName("Shop"))
}

func TestLoader_CSV(t *testing.T) {
	input := strings.Join([]string{
		"",
		"ProfileId,Login,Pass,TOTP",
		"p1,one@example.com,pw 1,",
		",,,",
		"p2,two@example.com,pw2,SECRET",
		"p3,three@example.com",
	}, "\n")

	creds, err := NewLoader(arbor.NewLogger().WithWriters([]writers.IWriter{})).LoadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, creds, 2)

	assert.Equal(t, "p1", creds[0].ProfileID)
	assert.Equal(t, "pw 1", creds[0].Password)
	assert.False(t, creds[0].HasTOTP())
	assert.Equal(t, "p2", creds[1].ProfileID)
	assert.Equal(t, "SECRET", creds[1].TOTPSecret)
}

func TestLoader_CSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,email,password\np1,a@example.com,pw\n"), 0600))

	creds, err := NewLoader(arbor.NewLogger().WithWriters([]writers.IWriter{})).LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}

func TestLoader_MissingRequiredHeader(t *testing.T) {
	_, err := NewLoader(arbor.NewLogger().WithWriters([]writers.IWriter{})).LoadCSV(strings.NewReader("id,email\np1,a@example.com\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

func TestLoader_EmptyInput(t *testing.T) {
	creds, err := NewLoader(arbor.NewLogger().WithWriters([]writers.IWriter{})).LoadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, creds)
}

func TestLoader_UnsupportedExtension(t *testing.T) {
	_, err := NewLoader(arbor.NewLogger().WithWriters([]writers.IWriter{})).Load(strings.NewReader("{}"), "creds.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "profileid", normalizeHeader(" Profile ID "))
	assert.Equal(t, "2fasecret", normalizeHeader("2FA\tSecret"))
	assert.Equal(t, "id", normalizeHeader("\ufeffID"))
}
