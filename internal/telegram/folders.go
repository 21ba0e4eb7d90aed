package telegram

// Folder is one existing non-default dialog folder.
type Folder struct {
	ID    int
	Title string
}

// AssignFolderID picks the folder id for a title: reuse the existing folder
// with that title, otherwise the lowest free id above the reserved range
// {1, 2}, otherwise one past the current maximum.
func AssignFolderID(existing []Folder, title string) int {
	used := map[int]bool{1: true, 2: true}
	maxID := 2

	for _, folder := range existing {
		if folder.Title == title {
			return folder.ID
		}
		used[folder.ID] = true
		if folder.ID > maxID {
			maxID = folder.ID
		}
	}

	for id := 2; id < maxID; id++ {
		if !used[id] {
			return id
		}
	}
	return maxID + 1
}
