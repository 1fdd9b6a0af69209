package denuncia

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// GerarProtocolo monta DEN + data UTC (YYYYMMDD) + 8 hex maiúsculos aleatórios.
func GerarProtocolo(now time.Time) (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return "DEN" + now.UTC().Format("20060102") + strings.ToUpper(hex.EncodeToString(buf[:])), nil
}
