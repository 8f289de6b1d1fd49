package services

// SetCodeSource replaces how six digit codes are drawn.
func (s *AuthService) SetCodeSource(codes func() (string, error)) {
	s.codes = codes
}
