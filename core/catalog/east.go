package catalog

// RegisterEast adds markets of the eastern states
func RegisterEast(b *Builder) {
	// West Bengal
	b.Register("WB001", "Kolkata Koley Market", "West Bengal", "Kolkata", 22.57, 88.36)
	b.Register("WB002", "Siliguri APMC", "West Bengal", "Darjeeling", 26.73, 88.40)

	// Bihar
	b.Register("BR001", "Patna APMC", "Bihar", "Patna", 25.59, 85.14)
	b.Register("BR002", "Muzaffarpur Mandi", "Bihar", "Muzaffarpur", 26.12, 85.39)

	// Odisha
	b.Register("OD001", "Bhubaneswar APMC", "Odisha", "Khordha", 20.30, 85.82)
}
