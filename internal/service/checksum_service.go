package service

import (
	"crypto/subtle"
	"fmt"

	"sadad-payment-service/pkg/phpjson"
)

const checksumSaltLength = 4

// ChecksumKey derives the checksum key. Order matters.
func ChecksumKey(secretKey, merchantID string) string {
	return secretKey + merchantID
}

// SadadChecksumService implements ports.ChecksumService.
type SadadChecksumService struct {
	merchantID string
	secretKey  string
	salt       SaltFunc
}

// NewChecksumService creates a checksum service bound to the merchant credentials.
// A nil salt uses GenerateSalt.
func NewChecksumService(merchantID, secretKey string, salt SaltFunc) *SadadChecksumService {
	if salt == nil {
		salt = GenerateSalt
	}
	return &SadadChecksumService{
		merchantID: merchantID,
		secretKey:  secretKey,
		salt:       salt,
	}
}

// Generate computes encrypt(sha256hex(jsonStr|salt) + salt, key).
func (s *SadadChecksumService) Generate(jsonStr, key string) (string, error) {
	salt := s.salt(checksumSaltLength)
	hashString := SHA256Hex(jsonStr+"|"+salt) + salt

	checksum, err := EncryptAES(hashString, key)
	if err != nil {
		return "", fmt.Errorf("encrypting checksum: %w", err)
	}
	return checksum, nil
}

// Verify decrypts checksum, splits off the trailing salt and compares hashes.
func (s *SadadChecksumService) Verify(jsonStr, key, checksum string) bool {
	if checksum == "" {
		return false
	}
	decrypted, err := DecryptAES(checksum, key)
	if err != nil || len(decrypted) < checksumSaltLength {
		return false
	}

	cut := len(decrypted) - checksumSaltLength
	expectedHash, salt := decrypted[:cut], decrypted[cut:]
	actual := SHA256Hex(jsonStr + "|" + salt)

	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}

// SignPayload checksums {"postData": payload, "secretKey": urlencode(secret)}.
func (s *SadadChecksumService) SignPayload(payload phpjson.Object) (string, error) {
	jsonStr, err := s.wrap(payload)
	if err != nil {
		return "", err
	}
	return s.Generate(jsonStr, ChecksumKey(s.secretKey, s.merchantID))
}

// VerifyPayload checks checksum against the wrapper built from the received fields.
func (s *SadadChecksumService) VerifyPayload(fields phpjson.Object, checksum string) bool {
	jsonStr, err := s.wrap(fields)
	if err != nil {
		return false
	}
	return s.Verify(jsonStr, ChecksumKey(s.secretKey, s.merchantID), checksum)
}

func (s *SadadChecksumService) wrap(payload phpjson.Object) (string, error) {
	wrapper := phpjson.Object{
		{Key: "postData", Value: payload},
		{Key: "secretKey", Value: phpjson.URLEncode(s.secretKey)},
	}
	jsonStr, err := phpjson.MarshalString(wrapper)
	if err != nil {
		return "", fmt.Errorf("encoding checksum payload: %w", err)
	}
	return jsonStr, nil
}
