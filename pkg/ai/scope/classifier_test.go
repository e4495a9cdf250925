package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStatewideIdentifier(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		id   string
		want bool
	}{
		{"RSA 32:5 Budget Preparation", true},
		{"NH Statutes Title III", true},
		{"NHMA Town Officers Handbook 2023.pdf", true},
		{"Chapter 41 Selectmen", true},
		{"DRA Property Tax Guidance", true},
		{"Secretary of State Election Procedure Manual", true},
		{"Exeter Select Board Minutes 2024-03-04.pdf", false},
		{"Anytown FY2024 Budget.pdf", false},
		{"Zoning Ordinance Chapter 5", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsStatewideIdentifier(tt.id))
		})
	}
}

func TestIsStatutoryQuestion(t *testing.T) {
	c := NewClassifier()
	assert.True(t, c.IsStatutoryQuestion("What does RSA 91-A say about minutes?"))
	assert.True(t, c.IsStatutoryQuestion("Which statute governs budget hearings?"))
	assert.True(t, c.IsStatutoryQuestion("Is a public hearing required by law?"))
	assert.False(t, c.IsStatutoryQuestion("What did the planning board decide last week?"))
}

func TestDetectJurisdiction(t *testing.T) {
	c := NewClassifier("Anytown")

	assert.Equal(t, "Anytown", c.DetectJurisdiction([]string{"anytown budget fy2024.pdf", "Anytown Warrant 2024"}))
	assert.Equal(t, "North Hampton", c.DetectJurisdiction([]string{"North Hampton Planning Board Minutes"}))
	assert.Equal(t, "Exeter", c.DetectJurisdiction([]string{"Dover minutes", "Exeter minutes", "Exeter budget"}))
	assert.Equal(t, "", c.DetectJurisdiction([]string{"Budget.pdf"}))
}

func TestClassify(t *testing.T) {
	c := NewClassifier("Anytown")

	t.Run("local only with gazetteer match", func(t *testing.T) {
		cls := c.Classify([]string{"Anytown FY2024 Budget.pdf", "Anytown Budget Committee Report.pdf"}, "What is the FY2024 budget for Anytown?", "")
		assert.Equal(t, SourceLocal, cls.Type)
		require.NotNil(t, cls.Jurisdiction)
		assert.Equal(t, "Anytown", *cls.Jurisdiction)
	})

	t.Run("hint wins over gazetteer", func(t *testing.T) {
		cls := c.Classify([]string{"Exeter Minutes.pdf"}, "q", "Stratham")
		require.NotNil(t, cls.Jurisdiction)
		assert.Equal(t, "Stratham", *cls.Jurisdiction)
	})

	t.Run("statewide only", func(t *testing.T) {
		cls := c.Classify([]string{"RSA 32:5", "NHMA Handbook"}, "q", "Anytown")
		assert.Equal(t, SourceStatewide, cls.Type)
		assert.Nil(t, cls.Jurisdiction)
	})

	t.Run("mixed", func(t *testing.T) {
		cls := c.Classify([]string{"RSA 32:5", "Anytown Budget.pdf"}, "q", "")
		assert.Equal(t, SourceMixed, cls.Type)
		require.NotNil(t, cls.Jurisdiction)
		assert.Equal(t, "Anytown", *cls.Jurisdiction)
	})

	t.Run("zero sources statutory question", func(t *testing.T) {
		cls := c.Classify(nil, "What does RSA 32:5 require for budget hearings?", "Anytown")
		assert.Equal(t, SourceStatewide, cls.Type)
		assert.Nil(t, cls.Jurisdiction)
	})

	t.Run("zero sources ordinary question", func(t *testing.T) {
		cls := c.Classify(nil, "When is the next meeting?", "")
		assert.Equal(t, SourceNone, cls.Type)
		assert.Nil(t, cls.Jurisdiction)
	})
}

func TestNoticeFor_SourcesNeverYieldStatewideOrNone(t *testing.T) {
	town := "Anytown"
	classes := []Classification{
		{Type: SourceLocal, Jurisdiction: &town},
		{Type: SourceStatewide},
		{Type: SourceMixed, Jurisdiction: &town},
		{Type: SourceNone},
	}

	for _, cls := range classes {
		for _, n := range []int{1, 3} {
			notice := NoticeFor(cls, n)
			assert.Contains(t, []SourceType{SourceLocal, SourceMixed}, notice.Type, "class %s with %d sources", cls.Type, n)
			assert.NotEmpty(t, notice.Text)
		}
	}
}

func TestNoticeFor_ZeroSources(t *testing.T) {
	notice := NoticeFor(StatewideFallback(), 0)
	assert.Equal(t, SourceStatewide, notice.Type)
	assert.Nil(t, notice.Jurisdiction)

	notice = NoticeFor(Classification{Type: SourceNone}, 0)
	assert.Equal(t, SourceNone, notice.Type)
}

func TestNoticeFor_LocalNamesTown(t *testing.T) {
	town := "Anytown"
	notice := NoticeFor(Classification{Type: SourceLocal, Jurisdiction: &town}, 2)
	assert.Contains(t, notice.Text, "Anytown")
	require.NotNil(t, notice.Jurisdiction)
	assert.Equal(t, "Anytown", *notice.Jurisdiction)
}
