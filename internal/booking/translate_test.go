package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/gym-session-reservation/internal/repository"
)

func TestTranslateLockContentionIsConflict(t *testing.T) {
	for _, num := range []uint16{1213, 1205} {
		cause := fmt.Errorf("decrement: %w", &mysql.MySQLError{Number: num, Message: "lock"})
		err := translate(cause)
		if !errors.Is(err, ErrContended) || KindOf(err) != KindConflict {
			t.Fatalf("mysql %d: got %v (kind %v)", num, err, KindOf(err))
		}
		var me *mysql.MySQLError
		if !errors.As(err, &me) {
			t.Fatalf("mysql %d: cause lost", num)
		}
	}
	if err := translate(&mysql.MySQLError{Number: 1146}); KindOf(err) != 0 {
		t.Fatalf("unrelated mysql error classified as %v", KindOf(err))
	}
	if err := translate(repository.ErrSessionFull); err != ErrSessionFull {
		t.Fatalf("session full: got %v", err)
	}
}
