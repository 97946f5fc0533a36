package settings

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDecode(t *testing.T) {
	t.Run("FillsDefaults", func(t *testing.T) {
		s, err := Decode([]byte(`{"mode":"team"}`))
		require.NoError(t, err)
		assert.Equal(t, ModeTeam, s.Mode)
		assert.True(t, s.FundPercent.Equal(d("0.15")))
		assert.True(t, s.WeeklyPercent.Equal(d("0.008")))
		assert.True(t, s.SeasonPercent.Equal(d("0.005")))
		assert.True(t, s.DispatcherPercentTotal.Equal(d("0.002")))
		assert.True(t, s.PerDispatcherPercent().Equal(d("0.001")))
	})

	t.Run("KeepsExplicitZero", func(t *testing.T) {
		s, err := Decode([]byte(`{"weekly_percent":"0","season_percent":0}`))
		require.NoError(t, err)
		assert.True(t, s.WeeklyPercent.IsZero())
		assert.True(t, s.SeasonPercent.IsZero())
	})

	t.Run("ClampsWithholding", func(t *testing.T) {
		s, err := Decode([]byte(`{"weekly_percent":"0.2","season_percent":"-0.1","dispatcher_percent_total":"0.06","fund_percent":"1.7"}`))
		require.NoError(t, err)
		assert.True(t, s.WeeklyPercent.Equal(d("0.05")))
		assert.True(t, s.SeasonPercent.IsZero())
		assert.True(t, s.DispatcherPercentTotal.Equal(d("0.05")))
		assert.True(t, s.FundPercent.Equal(d("1")))
	})

	t.Run("UnknownModeFallsBackToAdaptive", func(t *testing.T) {
		s, err := Decode([]byte(`{"mode":"lottery"}`))
		require.NoError(t, err)
		assert.Equal(t, ModeAdaptive, s.Mode)
	})

	t.Run("RejectsMalformedJSON", func(t *testing.T) {
		_, err := Decode([]byte(`{"mode":`))
		assert.Error(t, err)
	})
}

func TestNormalize_Shares(t *testing.T) {
	s := Settings{IndividualShare: d("3"), TeamShare: d("1")}.Normalize()
	assert.True(t, s.IndividualShare.Equal(d("0.75")))
	assert.True(t, s.TeamShare.Equal(d("0.25")))

	s = Settings{}.Normalize()
	assert.True(t, s.IndividualShare.Equal(d("0.5")))
	assert.True(t, s.TeamShare.Equal(d("0.5")))
}

func TestCoefficients(t *testing.T) {
	s := Settings{
		CategoryCoefficients: map[string]decimal.Decimal{"speedboat": d("1.2"), "broken": d("-1")},
		ZoneCoefficients:     map[string]decimal.Decimal{"pier": d("0.9")},
	}.Normalize()

	assert.True(t, s.CategoryCoefficient("speedboat").Equal(d("1.2")))
	assert.True(t, s.CategoryCoefficient("broken").IsZero())
	assert.True(t, s.CategoryCoefficient("yacht").Equal(d("1")))
	assert.True(t, s.ZoneCoefficient("pier").Equal(d("0.9")))
	assert.True(t, s.ZoneCoefficient("").Equal(d("1")))
}

func TestEncodeDecode_PreservesValues(t *testing.T) {
	orig := Seed("personal", 0.12, 0.7, 0.3, 0.01, 0.004, 0.003)
	orig.Version = 4
	orig.ZoneCoefficients["beach"] = d("1.1")

	data, err := orig.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, orig.Equal(decoded))
	assert.Equal(t, 4, decoded.Version)
}

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Equal(t, ModeAdaptive, s.Mode)
	assert.True(t, s.Equal(Seed("adaptive", 0.15, 0.6, 0.4, 0.008, 0.005, 0.002)))
}
