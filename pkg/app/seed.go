package app

// Demo content inserted on a first run with an empty store, so a new
// user sees working folders instead of a blank screen.
var seedFolders = []struct {
	name  string
	cards [][2]string
}{
	{
		name: "Web Development",
		cards: [][2]string{
			{"What is React?", "A JavaScript library for building user interfaces"},
			{"What is TypeScript?", "A typed superset of JavaScript that compiles to plain JavaScript"},
			{"What is Tailwind CSS?", "A utility-first CSS framework for rapidly building custom designs"},
		},
	},
	{
		name: "JavaScript Basics",
		cards: [][2]string{
			{"What is a closure?", "A function that has access to variables in its outer scope"},
			{"What is hoisting?", "JavaScript's default behavior of moving declarations to the top"},
		},
	},
}

// seedIfEmpty populates the demo folders when the store holds no
// folders at all. Any existing data disables seeding entirely.
func seedIfEmpty(a *App) error {
	n, err := a.store.CountFolders()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	for _, sf := range seedFolders {
		folder, err := a.CreateFolder(sf.name)
		if err != nil {
			return err
		}
		for _, qa := range sf.cards {
			if _, err := a.CreateCard(folder.ID, qa[0], qa[1]); err != nil {
				return err
			}
		}
	}
	return nil
}
