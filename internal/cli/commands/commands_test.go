package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litemap/litemap"
	"github.com/litemap/litemap/internal/orm/ormtest"
)

func writeProject(t *testing.T, version int) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf("name: people\nversion: %d\nstorage: %s\nlog_level: error\n", version, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "litemap.yml"), []byte(content), 0o644))
	return dir
}

func setVersion(t *testing.T, dir string, version int) {
	t.Helper()
	content := fmt.Sprintf("name: people\nversion: %d\nstorage: %s\nlog_level: error\n", version, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "litemap.yml"), []byte(content), 0o644))
}

func run(t *testing.T, defs []*litemap.Definition, opts []Option, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(defs, opts...)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, nil, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "litemap version: dev")
	assert.Contains(t, out, "Go version:")
}

func TestMigrateCommand_FreshThenUpToDate(t *testing.T) {
	dir := writeProject(t, 1)
	defs := []*litemap.Definition{ormtest.PersonV1()}

	out, err := run(t, defs, nil, "migrate", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "created")
	assert.Contains(t, out, "add_table")

	out, err = run(t, defs, nil, "migrate", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "already at version 1")

	out, err = run(t, defs, nil, "plan", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "no schema changes")
}

func TestMigrateCommand_ConfirmsRebuild(t *testing.T) {
	dir := writeProject(t, 1)
	_, err := run(t, []*litemap.Definition{ormtest.PersonV1()}, nil, "migrate", "-C", dir)
	require.NoError(t, err)

	setVersion(t, dir, 2)
	v2 := []*litemap.Definition{ormtest.PersonDef()}

	var asked []string
	decline := WithConfirm(func(message string) (bool, error) {
		asked = append(asked, message)
		return false, nil
	})

	out, err := run(t, v2, []Option{decline}, "migrate", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "migration cancelled")
	require.Len(t, asked, 1)
	assert.Contains(t, asked[0], "[person]")

	out, err = run(t, v2, nil, "inspect", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "version: 1")
	assert.NotContains(t, out, "person_person")

	out, err = run(t, v2, []Option{decline}, "migrate", "-C", dir, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "upgraded")
	assert.Contains(t, out, "from version 1 to 2")
	assert.Len(t, asked, 1, "--yes skips the prompt")

	out, err = run(t, v2, nil, "inspect", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "version: 2")
	assert.Contains(t, out, "person_person [join]")
}

func TestPlanCommand_ShowsStatements(t *testing.T) {
	dir := writeProject(t, 1)

	out, err := run(t, ormtest.All(), nil, "plan", "-C", dir, "--sql")
	require.NoError(t, err)
	assert.Contains(t, out, "from:    none")
	assert.Contains(t, out, `CREATE TABLE "student_teacher"`)
	assert.Contains(t, out, `DELETE FROM "table_schema";`)
}

func TestInspectCommand_Model(t *testing.T) {
	dir := writeProject(t, 1)

	out, err := run(t, ormtest.All(), nil, "inspect", "-C", dir, "--model")
	require.NoError(t, err)
	assert.Contains(t, out, "husband (Husband)")
	assert.Contains(t, out, "husband.wife_id")

	out, err = run(t, ormtest.All(), nil, "inspect", "-C", dir, "--model", "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, "schema.Schema")
}

func TestCommands_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "litemap.yml"), []byte("name: people\ncases: camel\n"), 0o644))

	_, err := run(t, nil, nil, "plan", "-C", dir)
	assert.True(t, litemap.IsConfiguration(err))

	_, err = run(t, []*litemap.Definition{ormtest.SongDef()}, nil, "plan", "-C", writeProject(t, 1))
	assert.True(t, litemap.IsConfiguration(err))
}

func TestCommands_RequireDefinitions(t *testing.T) {
	dir := writeProject(t, 1)
	_, err := run(t, []*litemap.Definition{ormtest.PersonV1()}, nil, "migrate", "-C", dir)
	require.NoError(t, err)
	setVersion(t, dir, 2)

	for _, args := range [][]string{{"migrate", "--yes"}, {"plan"}, {"inspect", "--model"}} {
		_, err := run(t, nil, nil, append(args, "-C", dir)...)
		assert.True(t, litemap.IsConfiguration(err), "%v", args)
	}

	out, err := run(t, nil, nil, "inspect", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "version: 1", "the store was not stamped")
	assert.Contains(t, out, "person [normal]")
}

func TestInspectCommand_MissingStore(t *testing.T) {
	dir := writeProject(t, 1)

	_, err := run(t, []*litemap.Definition{ormtest.PersonV1()}, nil, "inspect", "-C", dir)
	assert.ErrorIs(t, err, os.ErrNotExist)

	out, err := run(t, []*litemap.Definition{ormtest.PersonV1()}, nil, "plan", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "from:    none")
	assert.NoDirExists(t, filepath.Join(dir, "data"), "reading never creates the store")
}
