package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeContactsCSV(t *testing.T, rows []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.csv")
	content := ""
	for _, row := range rows {
		content += row + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadContactsDropsInvalidPhones(t *testing.T) {
	path := writeContactsCSV(t, []string{
		"Listado de clientes,,",
		"CELULAR,NOMBRES,FECHA FIN",
		"987654321,Ana Pérez,2024-12-31 00:00:00",
		"abc,Bruno,2024-11-30",
		"51987654322,Carla,2025-01-15",
	})

	contacts, dropped, err := LoadContacts(path, NewPhoneNormalizer("51", 9))
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, 1, dropped)

	// Source indices count rows of the sheet itself: the decorative row is
	// row 0 and the header row 1, so the first data row is row 2.
	assert.Equal(t, 0, contacts[0].SequenceIndex)
	assert.Equal(t, 2, contacts[0].SourceIndex)
	assert.Equal(t, "51987654321", contacts[0].Phone)
	assert.Equal(t, "Ana Pérez", contacts[0].Name)
	assert.Equal(t, "Ana Perez", contacts[0].DisplayName)
	assert.Equal(t, "31/12/2024", contacts[0].Expiry)

	assert.Equal(t, 1, contacts[1].SequenceIndex)
	assert.Equal(t, 4, contacts[1].SourceIndex)
	assert.Equal(t, "51987654322", contacts[1].Phone)
	assert.Equal(t, "15/01/2025", contacts[1].Expiry)
}

func TestLoadContactsRequiresColumns(t *testing.T) {
	path := writeContactsCSV(t, []string{
		"decorative,,",
		"PHONE,NAME,DUE",
		"987654321,Ana,2024-12-31",
	})

	_, _, err := LoadContacts(path, NewPhoneNormalizer("51", 9))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CELULAR")
}

func TestLoadContactsRejectsUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.xls")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, _, err := LoadContacts(path, NewPhoneNormalizer("51", 9))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported contact file format")
}

func TestLoadContactsFromXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Listado de clientes"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"CELULAR", "NOMBRES", "FECHA FIN"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"987654321", "José Quispe", "2024-12-31 00:00:00"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"12345", "Mal Número", "2024-12-31"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	contacts, dropped, err := LoadContacts(path, NewPhoneNormalizer("51", 9))
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "51987654321", contacts[0].Phone)
	assert.Equal(t, "Jose Quispe", contacts[0].DisplayName)
	assert.Equal(t, "31/12/2024", contacts[0].Expiry)
}

func TestLoadContactsZeroValidRows(t *testing.T) {
	path := writeContactsCSV(t, []string{
		"decorative,,",
		"CELULAR,NOMBRES,FECHA FIN",
		"abc,Ana,2024-12-31",
		"123,Bruno,2024-12-31",
	})

	contacts, dropped, err := LoadContacts(path, NewPhoneNormalizer("51", 9))
	require.NoError(t, err)
	assert.Empty(t, contacts)
	assert.Equal(t, 2, dropped)
}
