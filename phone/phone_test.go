package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/leadscout/models"
)

func TestExtract_BioText(t *testing.T) {
	set := Extract(Input{Bio: "Fale comigo: (11) 91234-5678"})

	require.Len(t, set.Details, 1)
	d := set.Details[0]
	assert.Equal(t, "+5511912345678", d.PhoneE164)
	assert.Equal(t, "+55 (11) 91234-5678", d.PhonePtBr)
	assert.Equal(t, models.ConfidenceLow, d.Confidence)
	assert.Equal(t, []string{"bio_text"}, d.Sources)

	assert.Equal(t, "+5511912345678", set.PrimaryE164)
	assert.Equal(t, "+55 (11) 91234-5678", set.PrimaryPtBr)
	assert.Equal(t, models.ConfidenceLow, set.PrimaryConfidence)
}

func TestExtract_WaMeBioLink(t *testing.T) {
	set := Extract(Input{BioLinks: []string{"https://wa.me/5511987654321"}})

	require.Len(t, set.Details, 1)
	d := set.Details[0]
	assert.Equal(t, "+5511987654321", d.PhoneE164)
	assert.Equal(t, models.ConfidenceHigh, d.Confidence)
	assert.Contains(t, d.Sources, "bio_link_1_wa_path")
	assert.Contains(t, d.Sources, "bio_link_1_text")
}

func TestExtract_WaMeWithoutScheme(t *testing.T) {
	set := Extract(Input{Link: "wa.me/5521998765432"})

	require.Len(t, set.Details, 1)
	assert.Equal(t, models.ConfidenceHigh, set.Details[0].Confidence)
	assert.Contains(t, set.Details[0].Sources, "profile_link_wa_path")
}

func TestExtract_NestedRedirectWrapper(t *testing.T) {
	link := "https://l.instagram.com/?u=https%3A%2F%2Fapi.whatsapp.com%2Fsend%3Fphone%3D5521998765432&e=AT0"
	set := Extract(Input{Link: link})

	require.Len(t, set.Details, 1)
	d := set.Details[0]
	assert.Equal(t, "+5521998765432", d.PhoneE164)
	assert.Equal(t, models.ConfidenceHigh, d.Confidence)
	assert.Contains(t, d.Sources, "profile_link_nested_wa_phone_param")
	assert.Contains(t, d.Sources, "profile_link_query_text")
}

func TestExtract_GenericPhoneParamIsMedium(t *testing.T) {
	set := Extract(Input{Link: "https://example.com/contato?phone=1133334444"})

	require.Len(t, set.Details, 1)
	d := set.Details[0]
	assert.Equal(t, "+551133334444", d.PhoneE164)
	assert.Equal(t, "+55 (11) 3333-4444", d.PhonePtBr)
	assert.Equal(t, models.ConfidenceMedium, d.Confidence)
	assert.Contains(t, d.Sources, "profile_link_phone_param")
}

func TestExtract_BioAndLinkMerge(t *testing.T) {
	set := Extract(Input{
		Bio:      "WhatsApp 11 98765-4321",
		BioLinks: []string{"", "https://wa.me/5511987654321?text=Ol%C3%A1"},
	})

	require.Len(t, set.Details, 1)
	d := set.Details[0]
	assert.Equal(t, models.ConfidenceHigh, d.Confidence)
	assert.Contains(t, d.Sources, "bio_text")
	assert.Contains(t, d.Sources, "bio_link_2_wa_path")
	assert.IsNonDecreasing(t, d.Sources)
}

func TestExtract_Empty(t *testing.T) {
	set := Extract(Input{Bio: "sem telefone aqui", Link: "https://example.com"})

	assert.Empty(t, set.Details)
	assert.NotNil(t, set.PhonesE164)
	assert.Empty(t, set.PrimaryE164)
	assert.Empty(t, set.PrimaryConfidence)
}

func TestExtract_SortedByE164(t *testing.T) {
	set := Extract(Input{Bio: "Loja 1: (21) 99999-0000 / Loja 2: (11) 3333-4444"})

	require.Len(t, set.PhonesE164, 2)
	assert.Equal(t, []string{"+551133334444", "+5521999990000"}, set.PhonesE164)
	assert.Equal(t, []string{"+55 (11) 3333-4444", "+55 (21) 99999-0000"}, set.PhonesPtBr)
}

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"mobile with country code", "+55 11 91234-5678", "+5511912345678", true},
		{"landline ten digits", "(11) 3333-4444", "+551133334444", true},
		{"trunk zero", "011 91234-5678", "+5511912345678", true},
		{"country code and trunk zero", "55 0 11 3333-4444", "+551133334444", true},
		{"ddd 55 with country code", "+55 55 99123-4567", "+5555991234567", true},
		{"ddd 55 without country code", "55 99123-4567", "", false},
		{"ddd 55 landline without country code", "5512345678", "", false},
		{"nine digits", "912345678", "", false},
		{"twelve digits", "119123456789", "", false},
		{"thirteen digits", "1191234567890", "", false},
		{"ddd below range", "1091234567", "", false},
		{"ddd leading zero", "00912345678", "", false},
		{"subscriber leading zero", "1101234567", "", false},
		{"no digits", "abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeE164(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeE164_Idempotent(t *testing.T) {
	for _, e164 := range []string{"+5511912345678", "+551133334444", "+5599987654321", "+5555991234567"} {
		t.Run(e164, func(t *testing.T) {
			again, ok := NormalizeE164(e164)
			require.True(t, ok)
			assert.Equal(t, e164, again)

			fromPtBr, ok := NormalizeE164(FormatPtBr(e164))
			require.True(t, ok)
			assert.Equal(t, e164, fromPtBr)
		})
	}
}

func TestMerge_ConfidenceMonotonic(t *testing.T) {
	details := Merge([]Detection{
		{E164: "+5511912345678", Source: "bio_text", Confidence: models.ConfidenceLow},
		{E164: "+5511912345678", Source: "bio_link_1_wa_path", Confidence: models.ConfidenceHigh},
		{E164: "+5511912345678", Source: "bio_link_1_text", Confidence: models.ConfidenceMedium},
	})

	require.Len(t, details, 1)
	assert.Equal(t, models.ConfidenceHigh, details[0].Confidence)
	assert.Equal(t, []string{"bio_link_1_text", "bio_link_1_wa_path", "bio_text"}, details[0].Sources)
}

func TestSelectPrimary(t *testing.T) {
	tests := []struct {
		name    string
		details []models.PhoneDetail
		want    string
	}{
		{
			name: "confidence wins",
			details: []models.PhoneDetail{
				{PhoneE164: "+5511111111111", Confidence: models.ConfidenceMedium, Sources: []string{"a", "b", "c"}},
				{PhoneE164: "+5599999999999", Confidence: models.ConfidenceHigh, Sources: []string{"a"}},
			},
			want: "+5599999999999",
		},
		{
			name: "source count breaks confidence tie",
			details: []models.PhoneDetail{
				{PhoneE164: "+5511111111111", Confidence: models.ConfidenceMedium, Sources: []string{"a"}},
				{PhoneE164: "+5522222222222", Confidence: models.ConfidenceMedium, Sources: []string{"a", "b"}},
			},
			want: "+5522222222222",
		},
		{
			name: "lexicographic tie break",
			details: []models.PhoneDetail{
				{PhoneE164: "+5521988887777", Confidence: models.ConfidenceMedium, Sources: []string{"a"}},
				{PhoneE164: "+5511988887777", Confidence: models.ConfidenceMedium, Sources: []string{"b"}},
			},
			want: "+5511988887777",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectPrimary(tt.details)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.PhoneE164)
		})
	}

	_, ok := SelectPrimary(nil)
	assert.False(t, ok)
}

func TestDecodeRepeated(t *testing.T) {
	assert.Equal(t, "a b", decodeRepeated("a%2520b"))
	assert.Equal(t, "100%", decodeRepeated("100%"))
	assert.Equal(t, "a%20b", decodeRepeated("a%252520b"))
}

func TestAreaCode(t *testing.T) {
	assert.Equal(t, "11", AreaCode("+5511912345678"))
	assert.Equal(t, "", AreaCode("12345"))
}
