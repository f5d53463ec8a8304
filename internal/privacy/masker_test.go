package privacy

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "Meu CPF é 123.456.789-09, RG 12.345.678-9 e meu email maria.silva@example.com, telefone (11) 98765-4321. " +
	"Moro na Rua das Flores, 123, CEP 01310-100. Cartão 4111 1111 1111 1111."

func TestMask_AllKinds(t *testing.T) {
	t.Parallel()

	res := Mask(sample)

	assert.Equal(t, 1, res.Counts[KindCard])
	assert.Equal(t, 2, res.Counts[KindIdentityDoc])
	assert.Equal(t, 1, res.Counts[KindEmail])
	assert.Equal(t, 1, res.Counts[KindPhone])
	assert.Equal(t, 2, res.Counts[KindAddress])
	assert.Equal(t, 7, res.Total())

	for _, secret := range []string{"123.456.789-09", "12.345.678-9", "maria.silva", "98765-4321", "Flores", "01310-100", "4111"} {
		assert.NotContains(t, res.Text, secret)
	}
	assert.Contains(t, res.Text, "[DOCUMENTO-M]")
	assert.Contains(t, res.Text, "[CARTAO-M]")
	assert.Contains(t, res.Text, "[ENDERECO-P]")
	assert.False(t, Detect(res.Text), "masked text must not match any detector")
}

func TestMask_Deterministic(t *testing.T) {
	t.Parallel()

	first := Mask(sample)
	second := Mask(sample)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Counts, second.Counts)
}

func TestMask_CardBeforeIdentityDoc(t *testing.T) {
	t.Parallel()

	res := Mask("cobrança no cartão 5500000000000004 sem autorização")
	assert.Equal(t, 1, res.Counts[KindCard])
	assert.Zero(t, res.Counts[KindIdentityDoc])
	assert.Zero(t, res.Counts[KindPhone])
}

func TestMask_CNPJAndBarePhone(t *testing.T) {
	t.Parallel()

	res := Mask("Loja 12.345.678/0001-90 não atende no 11 3333-4444")
	assert.Equal(t, 1, res.Counts[KindIdentityDoc])
	assert.Equal(t, 1, res.Counts[KindPhone])
	assert.False(t, Detect(res.Text))
}

func TestMask_RG(t *testing.T) {
	t.Parallel()

	res := Mask("RG 12.345.678-9 e RG antigo 1.234.567-X")
	assert.Equal(t, 2, res.Counts[KindIdentityDoc])
	assert.Equal(t, "RG [DOCUMENTO-M] e RG antigo [DOCUMENTO-M]", res.Text)

	res = Mask("pedido 123456789 entregue")
	assert.Zero(t, res.Total())
}

func TestMask_NoSensitiveData(t *testing.T) {
	t.Parallel()

	text := "O produto chegou quebrado e a garantia não foi honrada."
	res := Mask(text)
	assert.Equal(t, text, res.Text)
	assert.Zero(t, res.Total())
}

func TestLengthClass(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "P", lengthClass("01310-100"))
	assert.Equal(t, "M", lengthClass("123.456.789-09"))
	assert.Equal(t, "G", lengthClass(strings.Repeat("x", 21)))
}

func TestMasker_MaskDocument(t *testing.T) {
	t.Parallel()

	m := NewMasker()
	doc := Document{
		Contact:     "joana@example.com",
		Title:       "CPF 123.456.789-09 bloqueado",
		Description: "Liguem no (21) 99999-8888",
	}
	out := m.MaskDocument("RA-1", doc)

	assert.NotContains(t, out.Title, "123.456")
	assert.NotContains(t, out.Description, "99999")
	assert.Equal(t, 1, out.Counts[KindEmail])
	assert.Equal(t, 1, out.Counts[KindIdentityDoc])
	assert.Equal(t, 1, out.Counts[KindPhone])
	assert.Equal(t, map[string]int{"email": 1, "identity_doc": 1, "phone": 1}, out.CountsByName())

	contact, ok := m.ContactChannel("RA-1", nil)
	require.True(t, ok)
	assert.Equal(t, "joana@example.com", contact)
}

func TestMasker_ContactChannelFallsBackToPhone(t *testing.T) {
	t.Parallel()

	m := NewMasker()
	m.MaskDocument("RA-2", Document{Description: "me liga (11) 98765-4321"})
	contact, ok := m.ContactChannel("RA-2", nil)
	require.True(t, ok)
	assert.Equal(t, "(11) 98765-4321", contact)

	_, ok = m.ContactChannel("unknown", nil)
	assert.False(t, ok)
}

func TestMasker_ContactChannelRebuildsVault(t *testing.T) {
	t.Parallel()

	m := NewMasker()
	doc := &Document{Description: "escreva para ana@example.com"}
	contact, ok := m.ContactChannel("RA-3", doc)
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", contact)

	m.Forget("RA-3")
	_, ok = m.ContactChannel("RA-3", nil)
	assert.False(t, ok)
}

func TestMasker_ConcurrentUse(t *testing.T) {
	t.Parallel()

	m := NewMasker()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := "C-" + string(rune('a'+i))
			m.MaskDocument(id, Document{Description: sample})
			_, _ = m.ContactChannel(id, nil)
		}()
	}
	wg.Wait()
}

func TestRedactContact(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "#produtos", RedactContact("#produtos"))
	assert.Equal(t, "[EMAIL-M]", RedactContact("ana@example.com"))
	assert.Equal(t, "[REDACTED]", RedactContact("Ana"))
}
