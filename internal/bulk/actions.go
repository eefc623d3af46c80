package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	errs "igbot/pkg/errors"
	"igbot/pkg/metrics"
	"igbot/pkg/storage"
)

// MessageLikers messages the likers of the latest post of each page. The
// intermediate lists are written to the scrape, likers and usernames files
// so a run can be inspected afterwards.
func (r *Runner) MessageLikers(ctx context.Context, pages string) (int, error) {
	if err := storage.WriteLines(r.files.ScrapePages, splitPages(pages)); err != nil {
		return 0, err
	}
	toScrape, err := storage.ReadLines(r.files.ScrapePages)
	if err != nil {
		return 0, err
	}
	if len(toScrape) == 0 {
		return 0, ErrNoRecipients
	}

	var likerIDs []string
	for _, page := range toScrape {
		media, err := r.client.UserMedia(ctx, page)
		if err != nil {
			return 0, fmt.Errorf("failed to get media of %s: %w", page, err)
		}
		if len(media) == 0 {
			return 0, fmt.Errorf("%s: %w", page, errs.ErrNoMedia)
		}

		likers, err := r.client.MediaLikers(ctx, media[0])
		if err != nil {
			return 0, fmt.Errorf("failed to get likers of %s: %w", media[0], err)
		}
		likerIDs = append(likerIDs, likers...)
	}
	if err := storage.WriteLines(r.files.MediaLikers, likerIDs); err != nil {
		return 0, err
	}
	r.printf("Successfully written latest medialikers of %v\n", toScrape)

	ids, err := storage.ReadLines(r.files.MediaLikers)
	if err != nil {
		return 0, err
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, err := r.client.UsernameFromID(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve user %s: %w", id, err)
		}
		names = append(names, name)
	}
	if err := storage.WriteLines(r.files.LikerNames, names); err != nil {
		return 0, err
	}
	r.printf("Successfully converted %d likers\n", len(names))

	users, err := storage.ReadLines(r.files.LikerNames)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, nil
	}
	for i, user := range users {
		if err := r.send(ctx, "likers", r.flow.Message, []string{user}); err != nil {
			return i, err
		}
	}
	r.printf("Sent Individual Messages To All Users..\n")
	return len(users), nil
}

// splitPages accepts pages separated by commas or whitespace
func splitPages(input string) []string {
	return strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// FollowHashtags follows the recent posters of every hashtag
func (r *Runner) FollowHashtags(ctx context.Context, hashtags []string) (int, error) {
	if len(hashtags) == 0 {
		return 0, errors.New("no hashtags given")
	}

	followed := 0
	for _, tag := range hashtags {
		tag = strings.TrimPrefix(tag, "#")
		users, err := r.client.HashtagUsers(ctx, tag)
		if err != nil {
			return followed, fmt.Errorf("failed to get users of #%s: %w", tag, err)
		}
		r.logger.InfoWithFields("Following hashtag users", map[string]interface{}{
			"hashtag": tag,
			"count":   len(users),
		})

		for _, user := range users {
			if err := r.client.Follow(ctx, user); err != nil {
				return followed, fmt.Errorf("failed to follow %s: %w", user, err)
			}
			metrics.Follows.Inc()
			followed++
		}
	}
	return followed, nil
}

// UnfollowNonFollowers unfollows every followed account that does not follow back
func (r *Runner) UnfollowNonFollowers(ctx context.Context) (int, error) {
	followers, err := r.client.Followers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get followers: %w", err)
	}
	following, err := r.client.Following(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get following: %w", err)
	}

	back := make(map[string]struct{}, len(followers))
	for _, id := range followers {
		back[id] = struct{}{}
	}

	unfollowed := 0
	for _, id := range following {
		if _, ok := back[id]; ok {
			continue
		}
		if err := r.client.Unfollow(ctx, id); err != nil {
			return unfollowed, fmt.Errorf("failed to unfollow %s: %w", id, err)
		}
		metrics.Unfollows.Inc()
		unfollowed++
	}
	r.logger.InfoWithFields("Unfollowed non-followers", map[string]interface{}{
		"following":  len(following),
		"unfollowed": unfollowed,
	})
	return unfollowed, nil
}

// UploadStory posts the photo as a story
func (r *Runner) UploadStory(ctx context.Context, photo string) error {
	if photo == "" {
		return errors.New("no photo given, use --photo")
	}
	if err := r.client.UploadStoryPhoto(ctx, photo); err != nil {
		return fmt.Errorf("failed to upload story: %w", err)
	}
	r.logger.WithField("photo", photo).Info("Story uploaded")
	return nil
}
