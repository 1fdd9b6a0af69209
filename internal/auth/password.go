package auth

import (
	"sync"

	"github.com/alexedwards/argon2id"
)

var params = &argon2id.Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// Hash gera um hash Argon2id (inclui os parâmetros dentro do próprio hash).
func Hash(password string) (string, error) {
	return argon2id.CreateHash(password, params)
}

// Verify compara a senha com o hash Argon2id (lendo parâmetros do próprio hash).
func Verify(password, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, encodedHash)
}

// VerifyOrDummy compara contra um hash descartável quando o usuário não existe,
// mantendo o custo da resposta igual ao de uma senha errada.
func VerifyOrDummy(password, encodedHash string) bool {
	if encodedHash == "" {
		dummyOnce.Do(func() {
			dummyHash, _ = Hash("senha-inexistente")
		})
		_, _ = Verify(password, dummyHash)
		return false
	}
	ok, err := Verify(password, encodedHash)
	return err == nil && ok
}
