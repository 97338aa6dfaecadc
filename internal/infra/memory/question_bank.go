package memory

import "mathfly-quiz-service/internal/domain"

func q(id, prompt, a, b, c, d, correct string, phase domain.Phase) domain.Question {
	return domain.Question{ID: id, Prompt: prompt, OptionA: a, OptionB: b, OptionC: c, OptionD: d, CorrectOption: correct, Phase: phase}
}

// DefaultBank is the built-in question set used when no database or question
// file is configured.
func DefaultBank() map[domain.Phase][]domain.Question {
	return map[domain.Phase][]domain.Question{
		domain.PhaseFacil: {
			q("f1", "Quanto é 15 + 27?", "42", "41", "43", "40", "a", domain.PhaseFacil),
			q("f2", "Quanto é 8 × 7?", "54", "56", "58", "52", "b", domain.PhaseFacil),
			q("f3", "Quanto é 100 - 37?", "63", "73", "67", "53", "a", domain.PhaseFacil),
			q("f4", "Quanto é 144 ÷ 12?", "11", "13", "12", "14", "c", domain.PhaseFacil),
			q("f5", "Quanto é 25 + 38?", "63", "61", "65", "67", "a", domain.PhaseFacil),
			q("f6", "Quanto é 9 × 6?", "52", "54", "56", "58", "b", domain.PhaseFacil),
			q("f7", "Quanto é 72 ÷ 8?", "8", "9", "10", "7", "b", domain.PhaseFacil),
		},
		domain.PhaseMedio: {
			q("m1", "Quanto é 2/3 + 1/4?", "11/12", "3/7", "5/12", "7/12", "a", domain.PhaseMedio),
			q("m2", "Qual é a área de um retângulo de 8cm por 5cm?", "40 cm²", "26 cm²", "13 cm²", "35 cm²", "a", domain.PhaseMedio),
			q("m3", "Se 3x = 15, quanto vale x?", "3", "5", "4", "6", "b", domain.PhaseMedio),
			q("m4", "Quanto é 0,25 × 8?", "2", "2,5", "1,5", "3", "a", domain.PhaseMedio),
			q("m5", "Qual é o perímetro de um quadrado com lado 6cm?", "36 cm", "12 cm", "24 cm", "18 cm", "c", domain.PhaseMedio),
			q("m6", "Quanto é 15% de 200?", "25", "30", "35", "40", "b", domain.PhaseMedio),
		},
		domain.PhaseDificil: {
			q("d1", "Resolva: x² - 5x + 6 = 0", "x = 2 ou x = 3", "x = 1 ou x = 6", "x = -2 ou x = -3", "x = 0 ou x = 5", "a", domain.PhaseDificil),
			q("d2", "Qual é o volume de um cubo com aresta 4cm?", "16 cm³", "48 cm³", "64 cm³", "32 cm³", "c", domain.PhaseDificil),
			q("d3", "Se log₂(x) = 3, quanto vale x?", "6", "9", "8", "12", "c", domain.PhaseDificil),
			q("d4", "Quanto é sen(30°)?", "1/2", "√3/2", "√2/2", "1", "a", domain.PhaseDificil),
			q("d5", "Resolva o sistema: 2x + y = 7 e x - y = 2", "x = 3, y = 1", "x = 2, y = 3", "x = 4, y = -1", "x = 1, y = 5", "a", domain.PhaseDificil),
		},
		domain.PhaseExpert: {
			q("e1", "Resolva: ∫(2x + 1)dx", "x² + x + C", "2x² + x + C", "x² + 2x + C", "2x + C", "a", domain.PhaseExpert),
			q("e2", "Qual é o limite de (x² - 1)/(x - 1) quando x → 1?", "2", "1", "0", "∞", "a", domain.PhaseExpert),
			q("e3", "Resolva: x³ - 6x² + 11x - 6 = 0", "x = 1, 2, 3", "x = 0, 2, 3", "x = 1, 2, 4", "x = 2, 3, 4", "a", domain.PhaseExpert),
			q("e4", "Qual é a transformada de Laplace de f(t) = e^(2t)?", "1/(s-2)", "1/(s+2)", "2/(s-1)", "s/(s-2)", "a", domain.PhaseExpert),
			q("e5", "Resolva a equação diferencial: dy/dx = 2y", "y = Ce^(2x)", "y = C + 2x", "y = 2Ce^x", "y = Ce^x + 2", "a", domain.PhaseExpert),
		},
	}
}
