package rules

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipico/payload-masker/internal/config"
	"github.com/sipico/payload-masker/internal/masking"
	"github.com/sipico/payload-masker/internal/storage"
	"github.com/sipico/payload-masker/internal/testutil/mockstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func intPtr(n int) *int { return &n }

func maskBody(t *testing.T, m *masking.Masker, body string) string {
	t.Helper()
	res, err := m.MaskJSON([]byte(body))
	require.NoError(t, err)
	return string(res.Body)
}

func storeWith(rules ...*storage.FieldRule) *mockstore.MockStorage {
	return &mockstore.MockStorage{
		ListFieldRulesFunc: func(context.Context) ([]*storage.FieldRule, error) {
			return rules, nil
		},
	}
}

func TestService_LayersOverrideByFieldName(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `
masking:
  fields:
    - field-name: password
    - field-name: phone
      mask-end-index: 3
`)
	remote, err := config.ParseRules([]byte(`{"masking":{"fields":[{"field-name":"phone","mask-start-index":3}]}}`))
	require.NoError(t, err)
	store := storeWith(&storage.FieldRule{ID: 1, FieldConfig: masking.FieldConfig{FieldName: "password", MaskChar: "#"}})

	m := masking.NewMasker(nil, '*')
	svc := NewService(m, WithRulesFile(path), WithStore(store), WithLogger(discardLogger()))
	require.NoError(t, svc.Reload(context.Background(), SourceStartup))

	body := `{"password":"hunter2","phone":"5551234"}`
	assert.Equal(t, `{"password":"#######","phone":"***1234"}`, maskBody(t, m, body),
		"phone follows the file layer until a remote layer is set")

	require.NoError(t, svc.SetRemote(context.Background(), remote))
	assert.Equal(t, `{"password":"#######","phone":"555****"}`, maskBody(t, m, body))

	snap := svc.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, SourceRemote, snap.Source)
	assert.Equal(t, 2, snap.FileRules)
	assert.Equal(t, 1, snap.RemoteRules)
	assert.Equal(t, 1, snap.StoredRules)
	require.Len(t, snap.Fields, 2)
	assert.Equal(t, "phone", snap.Fields[0].FieldName)
	assert.Equal(t, intPtr(3), snap.Fields[0].MaskStartIndex)
	assert.Equal(t, "password", snap.Fields[1].FieldName)
	assert.Equal(t, "#", snap.Fields[1].MaskChar)
	assert.Equal(t, masking.DefaultCodeField, snap.CodeField)
	assert.False(t, snap.LoadedAt.IsZero())
}

func TestService_ReloadFailureKeepsPreviousRules(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("database is locked")
	fail := false
	store := &mockstore.MockStorage{
		ListFieldRulesFunc: func(context.Context) ([]*storage.FieldRule, error) {
			if fail {
				return nil, storeErr
			}
			return []*storage.FieldRule{{ID: 1, FieldConfig: masking.FieldConfig{FieldName: "pin"}}}, nil
		},
	}

	m := masking.NewMasker(nil, '*')
	svc := NewService(m, WithStore(store), WithLogger(discardLogger()))
	assert.Nil(t, svc.Snapshot())

	require.NoError(t, svc.Reload(context.Background(), SourceStartup))
	first := svc.Snapshot()

	fail = true
	err := svc.Reload(context.Background(), SourceAdmin)
	require.ErrorIs(t, err, storeErr)

	assert.Same(t, first, svc.Snapshot())
	assert.Equal(t, `{"pin":"****"}`, maskBody(t, m, `{"pin":"1234"}`))
}

func TestService_InvalidLayerRejected(t *testing.T) {
	t.Parallel()

	store := storeWith(&storage.FieldRule{ID: 1, FieldConfig: masking.FieldConfig{
		FieldName: "pan",
		MaskChar:  "##",
	}})

	svc := NewService(masking.NewMasker(nil, '*'), WithStore(store), WithLogger(discardLogger()))
	err := svc.Reload(context.Background(), SourceAdmin)
	assert.ErrorIs(t, err, masking.ErrInvalidFieldConfig)
	assert.Nil(t, svc.Snapshot())
}

func TestService_MissingRulesFile(t *testing.T) {
	t.Parallel()

	svc := NewService(masking.NewMasker(nil, '*'),
		WithRulesFile(filepath.Join(t.TempDir(), "missing.yaml")),
		WithLogger(discardLogger()))
	err := svc.Reload(context.Background(), SourceStartup)
	assert.ErrorIs(t, err, config.ErrRulesFileNotFound)
}

func TestService_RemoteDiscriminatorAndClear(t *testing.T) {
	t.Parallel()

	remote, err := config.ParseRules([]byte(`
masking:
  discriminator:
    code-field: type
    value-field: value
  fields:
    - field-name: SNILS
`))
	require.NoError(t, err)

	m := masking.NewMasker(nil, '*')
	svc := NewService(m, WithLogger(discardLogger()))
	require.NoError(t, svc.SetRemote(context.Background(), remote))

	snap := svc.Snapshot()
	assert.Equal(t, "type", snap.CodeField)
	assert.Equal(t, "value", snap.ValueField)
	assert.Equal(t, `{"type":"SNILS","value":"*****"}`, maskBody(t, m, `{"type":"SNILS","value":"12345"}`))

	require.NoError(t, svc.SetRemote(context.Background(), nil))
	assert.Equal(t, 0, svc.Snapshot().RemoteRules)
	assert.Equal(t, `{"type":"SNILS","value":"12345"}`, maskBody(t, m, `{"type":"SNILS","value":"12345"}`))
}

func TestEffective(t *testing.T) {
	t.Parallel()

	got := effective([]masking.FieldConfig{
		{FieldName: "a"},
		{FieldName: "b"},
		{FieldName: "a", MaskAll: true},
	})
	assert.Equal(t, []masking.FieldConfig{{FieldName: "b"}, {FieldName: "a", MaskAll: true}}, got)
}
