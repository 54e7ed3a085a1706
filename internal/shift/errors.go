package shift

import (
	"errors"
	"fmt"
)

// ValidationError istemcinin düzeltmesi gereken hatalı girdi. Otomatik tekrar denenmez.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	ErrInvalidAmount        = &ValidationError{Field: "amount", Message: "tutar 0'dan büyük olmalı"}
	ErrNegativeOpeningCash  = &ValidationError{Field: "opening_cash", Message: "açılış nakdi negatif olamaz"}
	ErrNegativeClosingCash  = &ValidationError{Field: "closing_cash", Message: "sayılan nakit negatif olamaz"}
	ErrMissingOpeningCash   = &ValidationError{Field: "opening_cash", Message: "açılış nakdi zorunlu"}
	ErrMissingClosingCash   = &ValidationError{Field: "closing_cash", Message: "sayılan nakit zorunlu"}
	ErrInvalidMovementType  = &ValidationError{Field: "type", Message: "geçersiz hareket tipi (pay_in|pay_out)"}
	ErrSectionMismatch      = &ValidationError{Field: "section_id", Message: "bölüm bu şubeye ait değil"}
	ErrUnknownSection       = &ValidationError{Field: "section_id", Message: "bölüm bulunamadı"}
	ErrMissingScope         = &ValidationError{Field: "branch_id", Message: "şube ve bölüm zorunlu"}
	ErrMissingActor         = &ValidationError{Field: "actor", Message: "kullanıcı bilgisi zorunlu"}
	ErrNoteTooLong          = &ValidationError{Field: "note", Message: "açıklama en fazla 255 karakter olabilir"}
	errOpenAttemptsExceeded = errors.New("vardiya açma denemeleri tükendi")
)

var (
	// ErrNotFound vardiya veya kayıt bulunamadı.
	ErrNotFound = errors.New("shift: kayıt bulunamadı")
	// ErrConflict unique kısıt ihlali (aynı kapsamda ikinci açık vardiya, tekrar eden client_ref).
	ErrConflict = errors.New("shift: kayıt çakışması")
	// ErrShiftClosed kapalı vardiyaya yazma denemesi.
	ErrShiftClosed = errors.New("shift: vardiya kapalı")
)

// AlreadyClosedError zaten kapanmış vardiyaya ikinci kapanış isteği.
// Çağıranlar bunu başarılı (idempotent) kapanış olarak ele alır; Summary ilk
// kapanıştaki değerleri taşır.
type AlreadyClosedError struct {
	ShiftID uint
	Summary Summary
}

func (e *AlreadyClosedError) Error() string {
	return fmt.Sprintf("shift: vardiya %d zaten kapalı", e.ShiftID)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsAlreadyClosed(err error) bool {
	var ac *AlreadyClosedError
	return errors.As(err, &ac)
}
