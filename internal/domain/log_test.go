package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	parsed, err := ParseDate(raw)
	require.NoError(t, err)
	return parsed
}

func param(t *testing.T, raw string) *DateParam {
	t.Helper()
	p, err := ParseDateParam(raw)
	require.NoError(t, err)
	return p
}

func intPtr(v int) *int { return &v }

func sampleUser(t *testing.T) User {
	return User{
		ID:       NewIdentity(),
		Username: "alice",
		Exercises: []Exercise{
			{Description: "a", Duration: 10, Date: day(t, "2023-02-01")},
			{Description: "b", Duration: 20, Date: day(t, "2023-01-01")},
			{Description: "c", Duration: 30, Date: day(t, "2023-03-01")},
			{Description: "d", Duration: 40, Date: day(t, "2023-04-01")},
			{Description: "e", Duration: 50, Date: day(t, "2023-05-01")},
		},
	}
}

func descriptions(view LogView) []string {
	out := make([]string, 0, len(view.Log))
	for _, entry := range view.Log {
		out = append(out, entry.Description)
	}
	return out
}

func TestFormatLogWindow(t *testing.T) {
	user := sampleUser(t)

	cases := []struct {
		name   string
		filter LogFilter
		want   []string
	}{
		{name: "no bounds", filter: LogFilter{}, want: []string{"a", "b", "c", "d", "e"}},
		{name: "from only", filter: LogFilter{From: param(t, "2023-02-15")}, want: []string{"c", "d", "e"}},
		{name: "to only", filter: LogFilter{To: param(t, "2023-02-15")}, want: []string{"a", "b"}},
		{name: "both bounds", filter: LogFilter{From: param(t, "2023-01-15"), To: param(t, "2023-04-15")}, want: []string{"a", "c", "d"}},
		{name: "bounds are exclusive", filter: LogFilter{From: param(t, "2023-02-01"), To: param(t, "2023-04-01")}, want: []string{"c"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view := FormatLog(user, tc.filter)
			require.Equal(t, tc.want, descriptions(view))
			require.Equal(t, len(tc.want), view.Count)
		})
	}
}

func TestFormatLogLimit(t *testing.T) {
	user := sampleUser(t)

	view := FormatLog(user, LogFilter{Limit: intPtr(2)})
	require.Equal(t, []string{"a", "b"}, descriptions(view))
	require.Equal(t, 2, view.Count)

	view = FormatLog(user, LogFilter{Limit: intPtr(0)})
	require.Empty(t, view.Log)
	require.NotNil(t, view.Log)
	require.Equal(t, 0, view.Count)

	view = FormatLog(user, LogFilter{Limit: intPtr(10)})
	require.Len(t, view.Log, 5)

	view = FormatLog(user, LogFilter{Limit: intPtr(1), From: param(t, "2023-03-15")})
	require.Equal(t, []string{"d"}, descriptions(view))
}

func TestFormatLogEchoesRawBounds(t *testing.T) {
	user := sampleUser(t)

	view := FormatLog(user, LogFilter{From: param(t, "2023-01-15T00:00:00Z")})
	require.Equal(t, "2023-01-15T00:00:00Z", view.From)
	require.Empty(t, view.To)

	body, err := json.Marshal(view)
	require.NoError(t, err)
	require.NotContains(t, string(body), `"to"`)
}

func TestFormatLogEmptyUserRendersArray(t *testing.T) {
	view := FormatLog(User{ID: NewIdentity(), Username: "bob"}, LogFilter{})

	body, err := json.Marshal(view)
	require.NoError(t, err)
	require.Contains(t, string(body), `"log":[]`)
	require.Contains(t, string(body), `"count":0`)
}

func TestFormatDate(t *testing.T) {
	require.Equal(t, "Sun Jan 01 2023", FormatDate(day(t, "2023-01-01")))
	require.Equal(t, "Fri Mar 15 2024", FormatDate(time.Date(2024, time.March, 15, 23, 59, 0, 0, time.UTC)))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2023-06-01")
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("2023-06-01T10:00:00+02:00")
	require.NoError(t, err)
	require.Equal(t, time.Date(2023, time.June, 1, 8, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("June 1st")
	require.Error(t, err)
}

func TestValidIdentity(t *testing.T) {
	require.True(t, ValidIdentity(NewIdentity()))
	require.False(t, ValidIdentity(""))
	require.False(t, ValidIdentity("abc"))
	require.False(t, ValidIdentity("zzzzzzzzzzzzzzzzzzzzzzzz"))
}
